package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"garagedesk/internal/engine"
	"garagedesk/internal/engine/policy"
	"garagedesk/internal/repo"
	"garagedesk/internal/report"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"repair REP-123456789 in completed does not allow accept"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"status\":\"completed\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Garagedesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Garagedesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerRepairs(group, cfg.Engine)
	registerInvoices(group, cfg.Engine)
	registerStaff(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerAnnouncements(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	if cfg.Auth.EnableDevLogin {
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var tierErr policy.ForbiddenError
	if errors.As(err, &tierErr) {
		return newAPIError(http.StatusForbidden, "forbidden_tier", err.Error(), map[string]any{"tier": tierErr.Tier})
	}
	var mgmtErr policy.ForbiddenManagementError
	if errors.As(err, &mgmtErr) {
		return newAPIError(http.StatusForbidden, "forbidden_management", err.Error(), map[string]any{"action": mgmtErr.Action})
	}
	var payerErr engine.NotPayerError
	if errors.As(err, &payerErr) {
		return newAPIError(http.StatusForbidden, "not_payer", err.Error(), map[string]any{"invoice_id": payerErr.InvoiceID})
	}
	var transErr engine.InvalidTransitionError
	if errors.As(err, &transErr) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{
			"kind":   transErr.Kind,
			"status": transErr.From,
			"action": transErr.Action,
		})
	}
	var amountErr engine.InvalidAmountError
	if errors.As(err, &amountErr) {
		return newAPIError(http.StatusBadRequest, "invalid_amount", err.Error(), map[string]any{"amount": amountErr.Amount})
	}
	var modErr engine.MessageRejectedError
	if errors.As(err, &modErr) {
		if modErr.Reason == "rate_limit" {
			return newAPIError(http.StatusTooManyRequests, "rate_limited", err.Error(), nil)
		}
		return newAPIError(http.StatusBadRequest, "message_rejected", err.Error(), map[string]any{"word": modErr.Word})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "already on the roster"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "unknown") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// ranksFor resolves the caller's ranks: role identifiers from the
// credential mapped through config, plus the staff roster rank when the
// actor is hired. A caller with no resolvable rank gets an empty set and
// fails the tier gate downstream.
func ranksFor(ctx context.Context, e engine.Engine, p Principal) []policy.Rank {
	var ranks []policy.Rank
	if e.Config != nil {
		ranks = e.Config.RanksFor(p.Roles)
	}
	if m, err := e.Repo.GetStaff(ctx, p.ActorID); err == nil {
		if r := policy.ParseRank(m.Rank); r != policy.RankNone {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		path.Join("/", basePath, "health"):         true,
		path.Join("/", basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Garagedesk API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerRepairs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-repair",
		Method:        http.MethodPost,
		Path:          "/repairs",
		Summary:       "Create repair request",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateRepairRequest `json:"body"`
	}) (*struct {
		Body RepairResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		requester := input.Body.RequesterID
		if requester == "" {
			requester = actorID
		}
		rec, err := e.CreateRepair(ctx, engine.RepairCreateOptions{
			RequesterID: requester,
			Vehicle:     input.Body.Vehicle,
			Problem:     input.Body.Problem,
			Tier:        input.Body.Tier,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RepairResponse `json:"body"`
		}{Body: repairResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-repairs",
		Method:      http.MethodGet,
		Path:        "/repairs",
		Summary:     "List repair requests",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"pending,accepted,rejected,in_progress,completed"`
	}) (*struct {
		Body []RepairResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListRepairs(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RepairResponse `json:"body"`
		}{Body: mapRepairs(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-repair",
		Method:      http.MethodGet,
		Path:        "/repairs/{repair_id}",
		Summary:     "Get repair request",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RepairID string `path:"repair_id"`
	}) (*struct {
		Body RepairResponse `json:"body"`
	}, error) {
		rec, err := e.Repo.GetRepair(ctx, input.RepairID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RepairResponse `json:"body"`
		}{Body: repairResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-repair",
		Method:      http.MethodPost,
		Path:        "/repairs/{repair_id}/transition",
		Summary:     "Apply a lifecycle action to a repair",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		RepairID string                  `path:"repair_id"`
		Body     RepairTransitionRequest `json:"body"`
	}) (*struct {
		Body RepairResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.TransitionRepair(ctx, engine.RepairTransitionOptions{
			RepairID: input.RepairID,
			ActorID:  principal.ActorID,
			Ranks:    ranksFor(ctx, e, principal),
			Action:   input.Body.Action,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RepairResponse `json:"body"`
		}{Body: repairResponse(rec)}, nil
	})
}

func registerInvoices(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "issue-invoice",
		Method:        http.MethodPost,
		Path:          "/invoices",
		Summary:       "Issue invoice",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body IssueInvoiceRequest `json:"body"`
	}) (*struct {
		Body InvoiceResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		inv, warnings, err := e.IssueInvoice(ctx, engine.InvoiceIssueOptions{
			IssuerID:    actorID,
			PayerID:     input.Body.PayerID,
			Vehicle:     input.Body.Vehicle,
			Description: input.Body.Description,
			Amount:      input.Body.Amount,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := invoiceResponse(inv)
		resp.Warnings = warnings
		return &struct {
			Body InvoiceResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-invoices",
		Method:      http.MethodGet,
		Path:        "/invoices",
		Summary:     "List invoices",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"pending,paid,disputed"`
	}) (*struct {
		Body []InvoiceResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListInvoices(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []InvoiceResponse `json:"body"`
		}{Body: mapInvoices(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-invoice",
		Method:      http.MethodGet,
		Path:        "/invoices/{invoice_id}",
		Summary:     "Get invoice",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		InvoiceID string `path:"invoice_id"`
	}) (*struct {
		Body InvoiceResponse `json:"body"`
	}, error) {
		inv, err := e.Repo.GetInvoice(ctx, input.InvoiceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InvoiceResponse `json:"body"`
		}{Body: invoiceResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pay-invoice",
		Method:      http.MethodPost,
		Path:        "/invoices/{invoice_id}/pay",
		Summary:     "Pay invoice",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		InvoiceID string `path:"invoice_id"`
	}) (*struct {
		Body InvoiceResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		inv, err := e.PayInvoice(ctx, input.InvoiceID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InvoiceResponse `json:"body"`
		}{Body: invoiceResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dispute-invoice",
		Method:      http.MethodPost,
		Path:        "/invoices/{invoice_id}/dispute",
		Summary:     "Dispute invoice",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		InvoiceID string `path:"invoice_id"`
	}) (*struct {
		Body InvoiceResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		inv, err := e.DisputeInvoice(ctx, input.InvoiceID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InvoiceResponse `json:"body"`
		}{Body: invoiceResponse(inv)}, nil
	})
}

func registerStaff(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "hire-staff",
		Method:        http.MethodPost,
		Path:          "/staff",
		Summary:       "Hire staff member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body HireStaffRequest `json:"body"`
	}) (*struct {
		Body StaffResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.HireStaff(ctx, engine.StaffHireOptions{
			ActorID:   principal.ActorID,
			Ranks:     ranksFor(ctx, e, principal),
			TargetID:  input.Body.ActorID,
			Rank:      input.Body.Rank,
			Specialty: input.Body.Specialty,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StaffResponse `json:"body"`
		}{Body: staffResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-staff",
		Method:      http.MethodGet,
		Path:        "/staff",
		Summary:     "List staff roster",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []StaffResponse `json:"body"`
	}, error) {
		items, err := e.Roster(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StaffResponse `json:"body"`
		}{Body: mapStaff(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "promote-staff",
		Method:      http.MethodPatch,
		Path:        "/staff/{actor_id}",
		Summary:     "Change staff rank",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ActorID string              `path:"actor_id"`
		Body    PromoteStaffRequest `json:"body"`
	}) (*struct {
		Body StaffResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.PromoteStaff(ctx, engine.StaffRankOptions{
			ActorID:  principal.ActorID,
			Ranks:    ranksFor(ctx, e, principal),
			TargetID: input.ActorID,
			Rank:     input.Body.Rank,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StaffResponse `json:"body"`
		}{Body: staffResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "fire-staff",
		Method:      http.MethodDelete,
		Path:        "/staff/{actor_id}",
		Summary:     "Remove staff member",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actor_id"`
	}) (*struct{}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.FireStaff(ctx, engine.StaffFireOptions{
			ActorID:  principal.ActorID,
			Ranks:    ranksFor(ctx, e, principal),
			TargetID: input.ActorID,
		}); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "staff-stats",
		Method:      http.MethodGet,
		Path:        "/staff/{actor_id}/stats",
		Summary:     "Mechanic activity stats",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actor_id"`
	}) (*struct {
		Body MechanicStatsResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetStaff(ctx, input.ActorID); err != nil {
			return nil, handleError(err)
		}
		stats, err := e.Repo.StatsForMechanic(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MechanicStatsResponse `json:"body"`
		}{Body: statsResponse(stats)}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{period}",
		Summary:     "Activity report for a period",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Period string `path:"period" enum:"daily,weekly,monthly"`
	}) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		period, err := report.ParsePeriod(input.Period)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		summary, err := report.Builder{Repo: e.Repo, Now: e.Now}.Build(ctx, period)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: reportResponse(summary)}, nil
	})
}

func registerAnnouncements(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "post-announcement",
		Method:        http.MethodPost,
		Path:          "/announcements",
		Summary:       "Post announcement",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body AnnounceRequest `json:"body"`
	}) (*struct {
		Body AnnouncementResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ann, err := e.Announce(ctx, engine.AnnounceOptions{
			ActorID: principal.ActorID,
			Ranks:   ranksFor(ctx, e, principal),
			Title:   input.Body.Title,
			Body:    input.Body.Body,
			Kind:    input.Body.Kind,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AnnouncementResponse `json:"body"`
		}{Body: announcementResponse(ann)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		var items []EventResponse
		var next string
		if cursorID > 0 {
			evts, err := e.Repo.EventsAfter(ctx, limit+1, cursorID)
			if err != nil {
				return nil, handleError(err)
			}
			if len(evts) > limit {
				evts = evts[:limit]
			}
			if len(evts) == limit {
				next = fmt.Sprintf("%d", evts[len(evts)-1].ID)
			}
			for _, evt := range evts {
				items = append(items, eventResponse(evt))
			}
		} else {
			evts, err := e.Repo.ListEvents(ctx, limit)
			if err != nil {
				return nil, handleError(err)
			}
			for _, evt := range evts {
				items = append(items, eventResponse(evt))
			}
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: paginatedEvents{Items: nonNilSlice(items), NextCursor: next}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors: []int{
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var rankNames []string
		for _, r := range ranksFor(ctx, e, principal) {
			rankNames = append(rankNames, r.String())
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID: principal.ActorID,
			Roles:   nonNilSlice(principal.Roles),
			Ranks:   nonNilSlice(rankNames),
			Source:  principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor, input.Body.Roles)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
