package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"meal-planner/internal/app"
	"meal-planner/internal/recipe"
)

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session", mcp.Description("Session id. Defaults to \""+DefaultSession+"\"."))

	s.mcpServer.AddTool(mcp.NewTool("normalize_recipe",
		mcp.WithDescription("Splits OCR output or pasted recipe notes into a title, ingredient lines and instruction lines."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Unstructured recipe text.")),
	), s.normalizeRecipe)

	s.mcpServer.AddTool(mcp.NewTool("show_plan",
		mcp.WithDescription("Shows the meals planned for a date, grouped by meal type."),
		sessionArg,
		mcp.WithString("date", mcp.Description("Date key. Defaults to the selected date.")),
	), s.showPlan)

	s.mcpServer.AddTool(mcp.NewTool("add_meal",
		mcp.WithDescription("Appends a meal by name to a date and meal type. Blank names are ignored."),
		sessionArg,
		mcp.WithString("date", mcp.Required(), mcp.Description("Date key, e.g. 2025-04-16.")),
		mcp.WithString("meal_type", mcp.Required(), mcp.Description("Break Fast, Lunch, Dinner or Snack.")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Meal name.")),
	), s.addMeal)

	s.mcpServer.AddTool(mcp.NewTool("import_recipe",
		mcp.WithDescription("Imports a recipe from a web page and adds it to the plan."),
		sessionArg,
		mcp.WithString("url", mcp.Required(), mcp.Description("Recipe page URL.")),
		mcp.WithString("date", mcp.Description("Date key. Defaults to the selected date.")),
		mcp.WithString("meal_type", mcp.Description("Meal type. Defaults to Break Fast.")),
	), s.importRecipe)

	s.mcpServer.AddTool(mcp.NewTool("list_groceries",
		mcp.WithDescription("Lists the grocery items by category."),
		sessionArg,
	), s.listGroceries)

	s.mcpServer.AddTool(mcp.NewTool("add_grocery_item",
		mcp.WithDescription("Adds an item to the grocery list."),
		sessionArg,
		mcp.WithString("category", mcp.Required(), mcp.Description("Produce, Pantry, Dairy, Meat & Seafood, Frozen, Bakery or Other.")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name.")),
		mcp.WithString("quantity", mcp.Description("Optional quantity.")),
	), s.addGroceryItem)

	s.mcpServer.AddTool(mcp.NewTool("toggle_grocery_item",
		mcp.WithDescription("Checks or unchecks a grocery item."),
		sessionArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id.")),
	), s.toggleGroceryItem)

	s.mcpServer.AddTool(mcp.NewTool("share_groceries",
		mcp.WithDescription("Returns the unchecked grocery items as shareable text."),
		sessionArg,
	), s.shareGroceries)

	s.mcpServer.AddTool(mcp.NewTool("list_kitchen",
		mcp.WithDescription("Lists the curated kitchen recipes."),
	), s.listKitchen)
}

func stringArg(req mcp.CallToolRequest, name string) string {
	v, _ := req.Params.Arguments[name].(string)
	return v
}

func (s *Server) session(ctx context.Context, req mcp.CallToolRequest) (*app.Session, error) {
	id := stringArg(req, "session")
	if id == "" {
		id = DefaultSession
	}
	return s.app.Session(ctx, id)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func failure(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s (%v)", app.UserMessage(err), err))
}

func (s *Server) normalizeRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := req.Params.Arguments["text"].(string)
	if !ok {
		return mcp.NewToolResultError("'text' parameter is required and must be a string."), nil
	}
	return jsonResult(recipe.Normalize(text))
}

func (s *Server) showPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	date := stringArg(req, "date")
	if date == "" {
		date = sess.SelectedDate()
	}
	return jsonResult(sess.Select(date))
}

func (s *Server) addMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	date, mealType := stringArg(req, "date"), stringArg(req, "meal_type")
	if date == "" || mealType == "" {
		return mcp.NewToolResultError("'date' and 'meal_type' parameters are required."), nil
	}
	added, err := s.app.AddMeal(ctx, sess, date, mealType, stringArg(req, "name"))
	if err != nil {
		return failure(err), nil
	}
	if !added {
		return mcp.NewToolResultText("Nothing added: the meal name is empty."), nil
	}
	return jsonResult(sess.Plans.SelectDate(date))
}

func (s *Server) importRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	target := app.Target{Date: stringArg(req, "date"), MealType: stringArg(req, "meal_type")}
	if _, err := s.app.Search(ctx, sess, target, stringArg(req, "url")); err != nil {
		return failure(err), nil
	}
	c, err := s.app.CommitDraft(ctx, sess)
	if err != nil {
		s.app.Discard(sess)
		return failure(err), nil
	}
	return jsonResult(c)
}

func (s *Server) listGroceries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(sess.Groceries.Snapshot())
}

func (s *Server) addGroceryItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	category := stringArg(req, "category")
	if category == "" {
		return mcp.NewToolResultError("'category' parameter is required."), nil
	}
	item, err := s.app.AddGroceryItem(ctx, sess, category, stringArg(req, "name"), stringArg(req, "quantity"))
	if err != nil {
		if app.KindOf(err) == app.KindValidation {
			return mcp.NewToolResultText("Nothing added: the item name is empty."), nil
		}
		return failure(err), nil
	}
	return jsonResult(item)
}

func (s *Server) toggleGroceryItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	id := stringArg(req, "id")
	category, _, found := sess.Groceries.Find(id)
	if !found {
		return mcp.NewToolResultText("Nothing changed: no item with that id."), nil
	}
	if _, err := s.app.ToggleGroceryItem(ctx, sess, category, id); err != nil {
		return failure(err), nil
	}
	_, item, _ := sess.Groceries.Find(id)
	return jsonResult(item)
}

func (s *Server) shareGroceries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return failure(err), nil
	}
	return mcp.NewToolResultText(sess.Groceries.BuildShareText()), nil
}

func (s *Server) listKitchen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes, err := s.app.KitchenRecipes(ctx)
	if err != nil {
		return failure(err), nil
	}
	return jsonResult(recipes)
}
