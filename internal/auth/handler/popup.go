package handler

import (
	"bytes"
	"html/template"

	"github.com/Constitosh/verifyDN/internal/auth"
)

const authSuccessType = "auth-success"

// The template engine escapes the payload and origin list for the script
// context, so provider-controlled display names cannot break out.
var popupTemplate = template.Must(template.New("popup").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Logged in</title></head>
<body>
<script>
(function () {
  var message = {type: {{.Type}}, payload: {{.Payload}}};
  var origins = {{.Origins}};
  if (window.opener) {
    for (var i = 0; i < origins.length; i++) {
      window.opener.postMessage(message, origins[i]);
    }
  }
  window.close();
})();
</script>
Logged in. You can close this window.
</body>
</html>
`))

type popupPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type popupRenderer struct {
	origins []string
}

func newPopupRenderer(origins []string) *popupRenderer {
	return &popupRenderer{origins: append([]string{}, origins...)}
}

func (p *popupRenderer) render(identity auth.Identity) ([]byte, error) {
	var buf bytes.Buffer
	err := popupTemplate.Execute(&buf, struct {
		Type    string
		Payload popupPayload
		Origins []string
	}{
		Type:    authSuccessType,
		Payload: popupPayload{ID: identity.ProviderID, DisplayName: identity.DisplayName},
		Origins: p.origins,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
