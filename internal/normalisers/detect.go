package normalisers

import (
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// extensionTypes covers extensions the system MIME table often lacks.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".json":     "application/json",
	".txt":      "text/plain",
	".rst":      "text/x-rst",
	".log":      "text/x-log",
	".csv":      "text/csv",
	".xml":      "application/xml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
}

// DetectMIMEType infers a MIME type from the file extension, falling back to
// content sniffing. JSON documents declaring an OpenAPI version are reported
// as OpenAPI so the schema normaliser picks them up.
func DetectMIMEType(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))

	mt, ok := extensionTypes[ext]
	if !ok && ext != "" {
		mt = baseMIMEType(mime.TypeByExtension(ext))
	}
	if mt == "" {
		mt = baseMIMEType(http.DetectContentType(content))
	}

	if mt == "application/json" && isOpenAPIJSON(content) {
		return "application/vnd.oai.openapi+json"
	}
	return mt
}

func isOpenAPIJSON(content []byte) bool {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte(`"openapi"`)) || bytes.Contains(head, []byte(`"swagger"`))
}
