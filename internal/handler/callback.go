package handler

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Message types posted from the callback page to the opener window.
const (
	MessageAuthCode  = "googleAuthCode"
	MessageAuthError = "googleAuthError"
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Google Drive</title>
</head>
<body>
<p>{{.Text}}</p>
<script>
(function () {
  var message = {{.Message}};
  if (window.opener) {
    window.opener.postMessage(message, {{.Origin}});
  }
  window.close();
})();
</script>
</body>
</html>
`))

type callbackView struct {
	Text    string
	Message map[string]string
	Origin  string
}

// CallbackHandler serves the OAuth redirect target. The page hands the result
// to the window that opened it and closes itself.
type CallbackHandler struct {
	frontendOrigin string
}

// NewCallbackHandler creates a CallbackHandler posting to frontendOrigin.
func NewCallbackHandler(frontendOrigin string) *CallbackHandler {
	return &CallbackHandler{frontendOrigin: frontendOrigin}
}

// Callback renders the hand-off page.
func (h *CallbackHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters
	view := callbackView{Origin: h.frontendOrigin}

	switch {
	case q["error"] != "":
		view.Text = "Google Drive was not linked. You can close this window."
		view.Message = map[string]string{"type": MessageAuthError, "error": q["error"], "state": q["state"]}
	case q["code"] != "":
		view.Text = "Finishing Google Drive setup. You can close this window."
		view.Message = map[string]string{"type": MessageAuthCode, "code": q["code"], "state": q["state"]}
	default:
		view.Text = "Missing authorization response. You can close this window."
		view.Message = map[string]string{"type": MessageAuthError, "error": "missing_code", "state": q["state"]}
	}

	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, view); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       buf.String(),
		Headers: map[string]string{
			"Content-Type":    "text/html; charset=utf-8",
			"Cache-Control":   "no-store",
			"Referrer-Policy": "no-referrer",
		},
	}, nil
}
