package matching

import (
	"regexp"
	"strings"

	"github.com/getmockd/stubd/pkg/stub"
)

// subTypePattern extracts the structured-syntax suffix or subtype of a media
// type: "json" from application/vnd.api+json, "xml" from text/xml.
var subTypePattern = regexp.MustCompile(`/(?:.*\+)?(\w*);?`)

// PostBodiesMatch compares a stubbed body with the asserting request's body.
// The comparison strategy follows the asserting request's content type.
func (m *Matcher) PostBodiesMatch(isBodyStubbed bool, stubbedBody string, asserting *stub.Request, tokens map[string]string) bool {
	if !isBodyStubbed {
		return true
	}
	body := asserting.Body()
	if strings.TrimSpace(body) == "" {
		return false
	}

	switch contentSubType(asserting.Headers()["content-type"]) {
	case "json":
		return m.jsonMatch(stubbedBody, body, tokens)
	case "xml":
		return m.xmlMatch(stubbedBody, body, tokens)
	default:
		return m.StringsMatch(stubbedBody, body, TokenPost, tokens)
	}
}

func contentSubType(contentType string) string {
	if contentType == "" {
		return ""
	}
	sm := subTypePattern.FindStringSubmatch(strings.ToLower(contentType))
	if sm == nil {
		return ""
	}
	return sm[1]
}
