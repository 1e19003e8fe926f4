// Package app wires the services and routes API Gateway requests to handlers.
package app

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/schoolmaps/drivelink/internal/apperr"
	"github.com/schoolmaps/drivelink/internal/config"
	"github.com/schoolmaps/drivelink/internal/handler"
	"github.com/schoolmaps/drivelink/internal/logger"
	"github.com/schoolmaps/drivelink/internal/metrics"
)

const originHeader = "X-Origin-Verify"

// App holds the dependencies for the Lambda function.
type App struct {
	driveHandler    *handler.DriveHandler
	fileHandler     *handler.FileHandler
	callbackHandler *handler.CallbackHandler

	frontendURL  string
	originSecret string
	devMode      bool
}

// New builds the router on top of an already wired service graph.
func New(cfg *config.Config, svc *Services) *App {
	return &App{
		driveHandler:    handler.NewDriveHandler(svc.Auth, svc.Secrets.JWTSecret),
		fileHandler:     handler.NewFileHandler(svc.Uploads, svc.Secrets.JWTSecret),
		callbackHandler: handler.NewCallbackHandler(cfg.FrontendURL),
		frontendURL:     cfg.FrontendURL,
		originSecret:    svc.Secrets.APIGatewaySecret,
		devMode:         cfg.DevMode,
	}
}

// NewApp wires the services for cfg and returns the router together with them,
// so callers can close the store on shutdown.
func NewApp(ctx context.Context, cfg *config.Config) (*App, *Services, error) {
	svc, err := NewServices(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return New(cfg, svc), svc, nil
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = logger.GenerateRequestID()
	}
	ctx = logger.WithRequestID(ctx, requestID)
	log := logger.FromContext(ctx)

	// Strip /api prefix if present (CloudFront proxying)
	path := req.Path
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		path = strings.TrimPrefix(path, "/api")
	}
	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}
	if req.QueryStringParameters == nil {
		req.QueryStringParameters = make(map[string]string)
	}

	route, resp := app.route(ctx, path, req)

	metrics.HTTPRequestsTotal.WithLabelValues(req.HTTPMethod, route, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(req.HTTPMethod, route).Observe(time.Since(start).Seconds())
	log.WithField("method", req.HTTPMethod).
		WithField("path", path).
		WithField("status", resp.StatusCode).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("request handled")

	return app.corsResponse(resp), nil
}

// route dispatches the request and returns the matched route pattern, used as
// the metrics label.
func (app *App) route(ctx context.Context, path string, req events.APIGatewayProxyRequest) (string, events.APIGatewayProxyResponse) {
	method := req.HTTPMethod

	// CORS preflight
	if method == http.MethodOptions {
		return "preflight", events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	// Only CloudFront knows the origin secret. The callback page is reached by a
	// browser redirect from Google and is exempt.
	if path != "/drive/callback" && !app.originVerified(req) {
		logger.FromContext(ctx).Warn("missing or invalid origin header")
		return "forbidden", handler.ErrorResponse(ctx, apperr.New(apperr.PermissionDenied, "Access denied."))
	}

	switch {
	case path == "/drive/auth-url" && method == http.MethodGet:
		return path, call(ctx, req, app.driveHandler.AuthURL)
	case path == "/drive/exchange" && method == http.MethodPost:
		return path, call(ctx, req, app.driveHandler.Exchange)
	case path == "/drive/disconnect" && method == http.MethodPost:
		return path, call(ctx, req, app.driveHandler.Disconnect)
	case path == "/drive/status" && method == http.MethodGet:
		return path, call(ctx, req, app.driveHandler.Status)
	case path == "/drive/callback" && method == http.MethodGet:
		return path, call(ctx, req, app.callbackHandler.Callback)
	case path == "/drive/files" && method == http.MethodPost:
		return path, call(ctx, req, app.fileHandler.Upload)
	case path == "/drive/files" && method == http.MethodGet:
		return path, call(ctx, req, app.fileHandler.List)
	case path == "/drive/files/delete" && method == http.MethodPost:
		return path, call(ctx, req, app.fileHandler.Delete)
	case strings.HasPrefix(path, "/drive/files/") && method == http.MethodDelete:
		id := strings.Trim(strings.TrimPrefix(path, "/drive/files/"), "/")
		if id != "" && !strings.Contains(id, "/") {
			req.PathParameters["id"] = id
			return "/drive/files/{id}", call(ctx, req, app.fileHandler.DeleteByID)
		}
	}

	return "unmatched", notFound(method, path)
}

func (app *App) originVerified(req events.APIGatewayProxyRequest) bool {
	if app.devMode || app.originSecret == "" {
		return true
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, originHeader) {
			return v == app.originSecret
		}
	}
	return false
}

func notFound(method, path string) events.APIGatewayProxyResponse {
	resp := handler.ErrorResponse(context.Background(), apperr.New(apperr.InvalidArgument, "Not found: "+method+" "+path))
	resp.StatusCode = http.StatusNotFound
	return resp
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.frontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

type handlerFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// call runs h, turning a handler error into a 500.
func call(ctx context.Context, req events.APIGatewayProxyRequest, h handlerFunc) events.APIGatewayProxyResponse {
	resp, err := h(ctx, req)
	if err != nil {
		return handler.ErrorResponse(ctx, err)
	}
	return resp
}
