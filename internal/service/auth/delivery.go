package auth

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
)

// Deliverer hands callback outcomes back to the frontend. The callback lands
// in whatever window the provider redirected: a popup posts the payload to
// its opener and closes, a full-page navigation falls back to redirecting
// into the client app. Both paths carry the same payload shape.
type Deliverer struct {
	clientOrigin string
	tmpl         *template.Template
}

// callbackMessage is the browser-facing payload. Exactly one of Data and
// ErrorTag is set.
type callbackMessage struct {
	Type     string        `json:"type"`
	Data     *callbackData `json:"data,omitempty"`
	ErrorTag string        `json:"error,omitempty"`
}

type callbackData struct {
	SessionToken string `json:"sessionToken"`
	Provider     string `json:"provider"`
	ExpiresAt    string `json:"expiresAt"`
	DisplayName  string `json:"displayName,omitempty"`
}

const deliveryPage = `<!DOCTYPE html>
<html>
<head><title>Signing in...</title></head>
<body>
<script>
(function() {
  var message = {{.Message}};
  var origin = {{.Origin}};
  if (window.opener) {
    window.opener.postMessage(message, origin);
    window.close();
  } else {
    window.location.href = {{.Fallback}};
  }
})();
</script>
</body>
</html>`

func NewDeliverer(clientOrigin string) *Deliverer {
	return &Deliverer{
		clientOrigin: clientOrigin,
		tmpl:         template.Must(template.New("callback").Parse(deliveryPage)),
	}
}

// DeliverSuccess renders the delivery page for a completed flow.
func (d *Deliverer) DeliverSuccess(w http.ResponseWriter, result *CallbackResult) {
	data := &callbackData{
		SessionToken: result.SessionToken,
		Provider:     result.Provider,
		ExpiresAt:    result.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if result.Profile != nil {
		data.DisplayName = result.Profile.Name
	}
	msg := callbackMessage{
		Type: result.Provider + "_callback",
		Data: data,
	}
	payload, _ := json.Marshal(msg)
	d.render(w, payload, d.successURL(result.Provider, payload))
}

// DeliverFailure renders the delivery page for a failed flow. Only the tag
// crosses to the browser, never the underlying error.
func (d *Deliverer) DeliverFailure(w http.ResponseWriter, provider, tag string) {
	msg := callbackMessage{
		Type:     provider + "_callback",
		ErrorTag: tag,
	}
	payload, _ := json.Marshal(msg)
	d.render(w, payload, d.errorURL(provider, tag))
}

func (d *Deliverer) render(w http.ResponseWriter, payload []byte, fallback string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := d.tmpl.Execute(w, map[string]any{
		"Message":  template.JS(payload),
		"Origin":   d.clientOrigin,
		"Fallback": fallback,
	})
	if err != nil {
		http.Error(w, "delivery failed", http.StatusInternalServerError)
	}
}

func (d *Deliverer) successURL(provider string, payload []byte) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("payload", string(payload))
	return d.clientOrigin + "/auth/success?" + q.Encode()
}

func (d *Deliverer) errorURL(provider, tag string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("error", tag)
	return d.clientOrigin + "/auth/error?" + q.Encode()
}
