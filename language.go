package cloudpad

import "strings"

// GuessLanguage returns the editor syntax-highlighting language for a key,
// based on the text after its last dot (the whole key when there is none).
// Unknown extensions map to "plaintext".
func GuessLanguage(key string) string {
	ext := strings.ToLower(key[strings.LastIndex(key, ".")+1:])

	switch ext {
	case "yaml", "yml":
		return "yaml"
	case "json":
		return "json"
	case "js":
		return "javascript"
	case "ts":
		return "typescript"
	case "py":
		return "python"
	case "html":
		return "html"
	case "css":
		return "css"
	case "md":
		return "markdown"
	default:
		return "plaintext"
	}
}
