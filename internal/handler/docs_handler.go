package handler

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"net/http"
)

//go:embed openapi.yaml
var openAPIDocument []byte

const swaggerUIPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>PetroManage Auth API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({ url: '%s', dom_id: '#swagger-ui', persistAuthorization: false });
    </script>
  </body>
</html>`

// DocsHandler serves the OpenAPI document compiled into the binary and a
// Swagger UI page that loads it.
type DocsHandler struct {
	document []byte
	etag     string
	page     []byte
}

func NewDocsHandler() *DocsHandler {
	sum := sha256.Sum256(openAPIDocument)
	return &DocsHandler{
		document: openAPIDocument,
		etag:     `"` + hex.EncodeToString(sum[:8]) + `"`,
		page:     []byte(fmt.Sprintf(swaggerUIPage, "/v3/api-docs")),
	}
}

func (h *DocsHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", h.etag)
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.document)
}

func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", "default-src 'none'; connect-src 'self'; script-src 'unsafe-inline' https://unpkg.com; style-src 'unsafe-inline' https://unpkg.com; img-src 'self' data:")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
