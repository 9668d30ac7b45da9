package service

import (
	"fmt"
	"os"
	"strings"
)

// RenderProtocol fills a protocol template by substituting {{key}}
// markers with field values in a single pass, so substituted values are
// never rescanned for markers. Markers without a matching field are left
// verbatim so an incomplete field map is visible in the output instead
// of silently blanked.
func RenderProtocol(templatePath string, fields map[string]string) ([]byte, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol template: %w", err)
	}
	pairs := make([]string, 0, len(fields)*2)
	for key, value := range fields {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return []byte(strings.NewReplacer(pairs...).Replace(string(data))), nil
}
