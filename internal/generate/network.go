package generate

import "fmt"

// DefaultURLs is used when no urls are configured.
var DefaultURLs = []string{
	"http://www.google.com/",
	"http://www.amazon.com/",
	"http://www.digg.com/",
	"http://www.nba.com/",
	"http://www.espn.com/",
	"http://www.python.org/",
}

// URL picks one of the configured urls.
func (g *Generators) URL() string {
	return g.urls[g.src.IntN(len(g.urls))]
}

// Email joins two lorem words as word@word.com.
func (g *Generators) Email() string {
	return g.src.Word() + "@" + g.src.Word() + ".com"
}

// IPAddress returns a dotted quad with every octet in [0,254].
func (g *Generators) IPAddress() string {
	return fmt.Sprintf("%d.%d.%d.%d", g.src.IntN(255), g.src.IntN(255), g.src.IntN(255), g.src.IntN(255))
}

func (g *Generators) url(Request) Decision       { return Value(g.URL()) }
func (g *Generators) email(Request) Decision     { return Value(g.Email()) }
func (g *Generators) ipAddress(Request) Decision { return Value(g.IPAddress()) }
