// Package fixture serves a minimal storefront with the pages the smoke check
// visits. Tests point the runner at it; `shopcheck fixture` serves it locally.
package fixture

import (
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options shape the fixture pages
type Options struct {
	// OmitHeading leaves the home heading out entirely.
	OmitHeading bool
	// HeadingDelay renders the home heading client-side after this delay,
	// like a storefront that fetches content after load.
	HeadingDelay time.Duration
	// HiddenHeading renders the home heading with zero height so it is in
	// the DOM but not visible.
	HiddenHeading bool
}

// Storefront is an http.Handler serving home, shop and cart
type Storefront struct {
	opts   Options
	router chi.Router

	mu         sync.Mutex
	shopVisits []string
}

// New creates a storefront fixture
func New(opts Options) *Storefront {
	s := &Storefront{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.home)
	r.Get("/shop", s.shop)
	r.Get("/cart", s.cart)
	s.router = r

	return s
}

func (s *Storefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ShopVisits returns the "from" marker of each shop page request in order.
// Header and footer links carry different markers.
func (s *Storefront) ShopVisits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shopVisits...)
}

type pageData struct {
	Title         string
	OmitHeading   bool
	HiddenHeading bool
	HeadingDelay  int64
}

func (s *Storefront) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home", pageData{
		Title:         "Home",
		OmitHeading:   s.opts.OmitHeading,
		HiddenHeading: s.opts.HiddenHeading,
		HeadingDelay:  s.opts.HeadingDelay.Milliseconds(),
	})
}

func (s *Storefront) shop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.shopVisits = append(s.shopVisits, r.URL.Query().Get("from"))
	s.mu.Unlock()

	s.render(w, "shop", pageData{Title: "Shop"})
}

func (s *Storefront) cart(w http.ResponseWriter, r *http.Request) {
	s.render(w, "cart", pageData{Title: "Cart"})
}

func (s *Storefront) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var pages = template.Must(template.New("layout").Parse(`
{{define "header"}}<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} | Elegant Jewelry</title></head>
<body>
<header>
	<nav>
		<a href="/">Home</a>
		<a id="header-shop" href="/shop?from=header">Shop</a>
		<a href="/cart">Cart</a>
	</nav>
</header>
<main>
{{end}}

{{define "footer"}}
</main>
<footer>
	<a id="footer-shop" href="/shop?from=footer">Shop</a>
	<p>Handcrafted since 1987</p>
</footer>
</body>
</html>
{{end}}

{{define "home"}}{{template "header" .}}
<section id="hero">
	{{if not .OmitHeading}}{{if .HeadingDelay}}
	<script>
		setTimeout(function() {
			var h = document.createElement('h1');
			h.innerHTML = 'Elegant Jewelry<br><span>For Every Moment</span>';
			document.getElementById('hero').prepend(h);
		}, {{.HeadingDelay}});
	</script>
	{{else if .HiddenHeading}}<h1 style="height:0;overflow:hidden;margin:0">Elegant Jewelry<br><span>For Every Moment</span></h1>
	{{else}}<h1>Elegant Jewelry<br><span>For Every Moment</span></h1>{{end}}{{end}}
	<p>Timeless pieces for every occasion.</p>
	<a href="/shop?from=hero">Shop Now</a>
</section>
{{template "footer" .}}{{end}}

{{define "shop"}}{{template "header" .}}
<h2>Our <em>Collection</em></h2>
<ul class="products">
	<li>Pearl Drop Earrings</li>
	<li>Sapphire Pendant</li>
	<li>Gold Band Ring</li>
</ul>
{{template "footer" .}}{{end}}

{{define "cart"}}{{template "header" .}}
<h2>Your Cart</h2>
<p>Your cart is empty.</p>
{{template "footer" .}}{{end}}
`))
