package server

import (
	"meal-planner/internal/app"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
)

// SessionPath binds the session id of every /sessions route.
type SessionPath struct {
	Session string `path:"session" doc:"Session id"`
}

// ItemPath addresses one grocery item.
type ItemPath struct {
	Session  string `path:"session" doc:"Session id"`
	Category string `path:"category"`
	ID       string `path:"id"`
}

type NormalizeRequest struct {
	Text string `json:"text" doc:"OCR output or pasted recipe notes"`
}

type AddMealRequest struct {
	Date     string `json:"date" example:"2025-04-16"`
	MealType string `json:"mealType" example:"Lunch"`
	Name     string `json:"name" example:"Pasta"`
}

type AddMealResponse struct {
	Added bool         `json:"added"`
	Day   mealplan.Day `json:"day"`
}

type AddItemRequest struct {
	Category string `json:"category" example:"Produce"`
	Name     string `json:"name" example:"carrots"`
	Quantity string `json:"quantity,omitempty" example:"1 bag"`
}

type EditItemRequest struct {
	Category string `json:"category,omitempty" doc:"New category; empty keeps the current one"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

type ChangedResponse struct {
	Changed bool `json:"changed"`
}

type ShareResponse struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

type StartDraftRequest struct {
	Source   string `json:"source" enum:"write,snap,paste,search,kitchen"`
	Date     string `json:"date,omitempty"`
	MealType string `json:"mealType,omitempty"`
	Text     string `json:"text,omitempty" doc:"Pasted text"`
	URL      string `json:"url,omitempty" doc:"Recipe page to import"`
	Recipe   string `json:"recipe,omitempty" doc:"Curated recipe id or title"`
	Notes    string `json:"notes,omitempty"`
	Image    []byte `json:"image,omitempty" doc:"Base64 encoded photo"`
	MimeType string `json:"mimeType,omitempty"`
	ImageURI string `json:"imageUri,omitempty"`
}

type DraftResponse struct {
	State  string        `json:"state" example:"writing"`
	Target app.Target    `json:"target"`
	Draft  *recipe.Draft `json:"draft,omitempty"`
}

type CommitResponse struct {
	Target app.Target     `json:"target"`
	Entry  mealplan.Entry `json:"entry"`
}

type StatusResponse struct {
	Health   metrics.SysHealth      `json:"health"`
	Sessions int                    `json:"sessions"`
	Daily    []metrics.DailySummary `json:"daily,omitempty"`
}

type groceryBody struct {
	Body grocery.List `json:"body"`
}
