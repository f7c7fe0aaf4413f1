package swagger

import (
	_ "embed"
	"net/http"

	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openAPISpec []byte

type doc struct{}

func (doc) ReadDoc() string { return string(openAPISpec) }

func init() {
	swag.Register(swag.Name, doc{})
}

// Handler serves the registered OpenAPI document and a Swagger UI page.
// Mount it with http.StripPrefix.
func Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		spec, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, "api documentation unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write([]byte(spec))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(swaggerUIHTML))
	})

	return mux
}

// swaggerUIHTML renders the document with the swagger-ui bundle and links the
// raw YAML for tooling.
const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Bill Optimizer API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css">
</head>
<body>
  <p style="font-family: sans-serif; margin: 16px 20px;">
    Slab billing, usage planning and account endpoints.
    Raw document: <a href="/docs/openapi.yaml">openapi.yaml</a>
  </p>
  <div id="api-docs"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: "/docs/openapi.yaml", dom_id: "#api-docs", docExpansion: "list" });
  </script>
</body>
</html>
`
