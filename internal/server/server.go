// Package server exposes the sessions of an app.App as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meal-planner/internal/app"
	"meal-planner/internal/draft"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
	"meal-planner/internal/share"
)

// Config for the HTTP API handler.
type Config struct {
	App *app.App
	// Signer enables share links. Optional.
	Signer *share.Signer
	// Metrics adds daily call summaries to /status. Optional.
	Metrics *metrics.Store
	// DataPath is measured for the disk usage in /status.
	DataPath string
}

// New returns an HTTP handler exposing the meal planner API.
func New(cfg Config) (http.Handler, error) {
	if cfg.App == nil {
		return nil, errors.New("failed to create server: app is required")
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	hcfg := huma.DefaultConfig("Meal Planner API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)

	registerHealth(api)
	registerStatus(api, cfg)
	registerRecipes(api, cfg.App)
	registerPlan(api, cfg.App)
	registerGroceries(api, cfg.App, cfg.Signer)
	registerDraft(api, cfg.App)
	registerShare(api, cfg.App, cfg.Signer)

	return router, nil
}

// handleError maps an application failure to an HTTP status.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := app.UserMessage(err)
	switch app.KindOf(err) {
	case app.KindValidation:
		return huma.Error422UnprocessableEntity(msg, err)
	case app.KindPermission:
		return huma.Error403Forbidden(msg, err)
	case app.KindRemote:
		return huma.Error502BadGateway(msg, err)
	case app.KindNotFound:
		return huma.Error404NotFound(msg, err)
	case app.KindStale:
		return huma.Error409Conflict("draft was closed or replaced", err)
	}
	if errors.Is(err, draft.ErrNoDraft) || errors.Is(err, draft.ErrWrongState) {
		return huma.Error409Conflict(err.Error())
	}
	log.Printf("API error: %v", err)
	return huma.Error500InternalServerError(msg)
}

func session(ctx context.Context, a *app.App, id string) (*app.Session, error) {
	s, err := a.Session(ctx, id)
	if err != nil {
		return nil, handleError(err)
	}
	return s, nil
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

func registerStatus(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Runtime health and external call summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		resp := StatusResponse{
			Health:   metrics.GetSysHealth(cfg.DataPath),
			Sessions: len(cfg.App.Sessions()),
		}
		if cfg.Metrics != nil {
			daily, err := cfg.Metrics.GetDailySummary(ctx, 7)
			if err != nil {
				return nil, handleError(err)
			}
			resp.Daily = daily
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerRecipes(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "normalize-recipe",
		Method:      http.MethodPost,
		Path:        "/recipes/normalize",
		Summary:     "Split recipe text into title, ingredients and instructions",
	}, func(ctx context.Context, input *struct {
		Body NormalizeRequest `json:"body"`
	}) (*struct {
		Body recipe.Parsed `json:"body"`
	}, error) {
		return &struct {
			Body recipe.Parsed `json:"body"`
		}{Body: recipe.Normalize(input.Body.Text)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-recipe",
		Method:      http.MethodGet,
		Path:        "/recipes/{id}",
		Summary:     "Archived recipe behind a meal entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body recipe.Recipe `json:"body"`
	}, error) {
		rec, err := a.Recipe(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body recipe.Recipe `json:"body"`
		}{Body: *rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-kitchen",
		Method:      http.MethodGet,
		Path:        "/kitchen",
		Summary:     "Curated recipes",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []recipe.Recipe `json:"body"`
	}, error) {
		recipes, err := a.KitchenRecipes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []recipe.Recipe `json:"body"`
		}{Body: recipes}, nil
	})
}

func registerPlan(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "get-plan-day",
		Method:      http.MethodGet,
		Path:        "/sessions/{session}/plan",
		Summary:     "Meals of one date",
	}, func(ctx context.Context, input *struct {
		SessionPath
		Date string `query:"date" doc:"Date key; defaults to the selected date"`
	}) (*struct {
		Body mealplan.Day `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		date := input.Date
		if date == "" {
			date = s.SelectedDate()
		}
		return &struct {
			Body mealplan.Day `json:"body"`
		}{Body: s.Select(date)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plan-dates",
		Method:      http.MethodGet,
		Path:        "/sessions/{session}/plan/dates",
		Summary:     "Dates with planned meals",
	}, func(ctx context.Context, input *SessionPath) (*struct {
		Body []string `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		return &struct {
			Body []string `json:"body"`
		}{Body: s.Plans.Dates()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-meal",
		Method:      http.MethodPost,
		Path:        "/sessions/{session}/plan/meals",
		Summary:     "Append a meal by name",
		Description: "A blank name is ignored and reported with added=false.",
	}, func(ctx context.Context, input *struct {
		SessionPath
		Body AddMealRequest `json:"body"`
	}) (*struct {
		Body AddMealResponse `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		added, err := a.AddMeal(ctx, s, input.Body.Date, input.Body.MealType, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AddMealResponse `json:"body"`
		}{Body: AddMealResponse{Added: added, Day: s.Plans.SelectDate(input.Body.Date)}}, nil
	})
}

func registerGroceries(api huma.API, a *app.App, signer *share.Signer) {
	huma.Register(api, huma.Operation{
		OperationID: "list-groceries",
		Method:      http.MethodGet,
		Path:        "/sessions/{session}/groceries",
		Summary:     "Grocery list",
	}, func(ctx context.Context, input *SessionPath) (*groceryBody, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		return &groceryBody{Body: s.Groceries.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-grocery-item",
		Method:        http.MethodPost,
		Path:          "/sessions/{session}/groceries",
		Summary:       "Add a grocery item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		SessionPath
		Body AddItemRequest `json:"body"`
	}) (*struct {
		Body grocery.Item `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		item, err := a.AddGroceryItem(ctx, s, input.Body.Category, input.Body.Name, input.Body.Quantity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body grocery.Item `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-grocery-item",
		Method:      http.MethodPost,
		Path:        "/sessions/{session}/groceries/{category}/{id}/toggle",
		Summary:     "Flip the checked flag",
		Description: "An unknown id is a no-op reported with changed=false.",
	}, func(ctx context.Context, input *ItemPath) (*struct {
		Body ChangedResponse `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		changed, err := a.ToggleGroceryItem(ctx, s, input.Category, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChangedResponse `json:"body"`
		}{Body: ChangedResponse{Changed: changed}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-grocery-item",
		Method:      http.MethodPut,
		Path:        "/sessions/{session}/groceries/{category}/{id}",
		Summary:     "Rename an item or move it to another category",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ItemPath
		Body EditItemRequest `json:"body"`
	}) (*struct {
		Body grocery.Item `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		item, err := a.EditGroceryItem(ctx, s, input.Category, input.Body.Category, input.ID, input.Body.Name, input.Body.Quantity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body grocery.Item `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-grocery-item",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session}/groceries/{category}/{id}",
		Summary:     "Remove an item",
		Description: "An unknown id is a no-op reported with changed=false.",
	}, func(ctx context.Context, input *ItemPath) (*struct {
		Body ChangedResponse `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		changed, err := a.DeleteGroceryItem(ctx, s, input.Category, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChangedResponse `json:"body"`
		}{Body: ChangedResponse{Changed: changed}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "share-groceries",
		Method:      http.MethodPost,
		Path:        "/sessions/{session}/groceries/share",
		Summary:     "Share text of the unchecked items, with a signed link when enabled",
	}, func(ctx context.Context, input *SessionPath) (*struct {
		Body ShareResponse `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		resp := ShareResponse{Text: s.Groceries.BuildShareText()}
		if signer != nil {
			if resp.Link, err = signer.Link(s.ID); err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body ShareResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func draftResponse(s *app.Session) DraftResponse {
	resp := DraftResponse{State: s.Editor.State().String(), Target: s.Target()}
	if d, err := s.Editor.Draft(); err == nil {
		resp.Draft = &d
	}
	return resp
}

func registerDraft(api huma.API, a *app.App) {
	type draftBody struct {
		Body DraftResponse `json:"body"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "start-draft",
		Method:        http.MethodPost,
		Path:          "/sessions/{session}/draft",
		Summary:       "Open a draft through one of the capture paths",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		SessionPath
		Body StartDraftRequest `json:"body"`
	}) (*draftBody, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		source, err := recipe.ParseSource(input.Body.Source)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		target := app.Target{Date: input.Body.Date, MealType: input.Body.MealType}

		switch source {
		case recipe.SourceWrite:
			a.StartWrite(s, target)
		case recipe.SourcePaste:
			a.Paste(s, target, input.Body.Text)
		case recipe.SourceSnap:
			img := app.Image{Data: input.Body.Image, MimeType: input.Body.MimeType, URI: input.Body.ImageURI}
			_, err = a.Snap(ctx, s, target, img)
		case recipe.SourceSearch:
			_, err = a.Search(ctx, s, target, input.Body.URL)
		case recipe.SourceKitchen:
			_, err = a.Kitchen(ctx, s, target, input.Body.Recipe, input.Body.Notes)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &draftBody{Body: draftResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-draft",
		Method:      http.MethodGet,
		Path:        "/sessions/{session}/draft",
		Summary:     "Open draft and editor state",
	}, func(ctx context.Context, input *SessionPath) (*draftBody, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		return &draftBody{Body: draftResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-draft",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session}/draft",
		Summary:     "Change fields of the open draft",
		Errors:      []int{http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionPath
		Body app.DraftPatch `json:"body"`
	}) (*draftBody, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		if _, err := a.EditDraft(s, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &draftBody{Body: draftResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "commit-draft",
		Method:      http.MethodPost,
		Path:        "/sessions/{session}/draft/commit",
		Summary:     "Add the open draft to the meal plan",
		Errors:      []int{http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *SessionPath) (*struct {
		Body CommitResponse `json:"body"`
	}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		c, err := a.CommitDraft(ctx, s)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CommitResponse `json:"body"`
		}{Body: CommitResponse{Target: c.Target, Entry: c.Entry}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "discard-draft",
		Method:        http.MethodDelete,
		Path:          "/sessions/{session}/draft",
		Summary:       "Discard the open draft",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SessionPath) (*struct{}, error) {
		s, err := session(ctx, a, input.Session)
		if err != nil {
			return nil, err
		}
		a.Discard(s)
		return nil, nil
	})
}

func registerShare(api huma.API, a *app.App, signer *share.Signer) {
	if signer == nil {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "open-share-link",
		Method:      http.MethodGet,
		Path:        "/share/{token}",
		Summary:     "Grocery share text behind a signed link",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Token string `path:"token"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		sid, err := signer.Verify(input.Token)
		if err != nil {
			return nil, huma.Error404NotFound("link is invalid or expired")
		}
		s, err := session(ctx, a, sid)
		if err != nil {
			return nil, err
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "text/plain; charset=utf-8", Body: []byte(s.Groceries.BuildShareText())}, nil
	})
}
