// Package kitchen serves the curated "kitchen" recipes kept in a Firestore
// collection and imports new ones from Spoonacular.
package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"meal-planner/internal/recipe"
	"meal-planner/internal/shared"

	"google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

// DefaultCollection holds the curated recipes.
const DefaultCollection = "kitchenRecipes"

// Source lists curated recipes.
type Source interface {
	List(ctx context.Context) ([]recipe.Recipe, error)
}

// Writer stores a curated recipe and returns its document id.
type Writer interface {
	Create(ctx context.Context, d recipe.Draft) (string, error)
}

// FirestoreStore reads and writes the curated collection over the Firestore
// REST API. Documents are treated as opaque field maps.
type FirestoreStore struct {
	docs       *firestore.ProjectsDatabasesDocumentsService
	parent     string
	collection string
	recorder   shared.CallRecorder
}

// NewFirestoreStore creates a store for projectID. Authentication is passed in
// opts, usually option.WithAPIKey.
func NewFirestoreStore(ctx context.Context, projectID, collection string, rec shared.CallRecorder, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("failed to create Firestore store: project id is empty")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	svc, err := firestore.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore service: %w", err)
	}
	return &FirestoreStore{
		docs:       svc.Projects.Databases.Documents,
		parent:     fmt.Sprintf("projects/%s/databases/(default)/documents", projectID),
		collection: collection,
		recorder:   rec,
	}, nil
}

// List fetches every document of the collection, following result pages.
// Documents that cannot be decoded are skipped.
func (s *FirestoreStore) List(ctx context.Context) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	err := shared.Track(ctx, s.recorder, "firestore", "list", func() error {
		call := s.docs.List(s.parent, s.collection).PageSize(100)
		return call.Pages(ctx, func(page *firestore.ListDocumentsResponse) error {
			for _, doc := range page.Documents {
				rec, err := decodeDocument(doc)
				if err != nil {
					continue
				}
				recipes = append(recipes, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list kitchen recipes: %w", err)
	}
	return recipes, nil
}

// Create adds a document with a generated id.
func (s *FirestoreStore) Create(ctx context.Context, d recipe.Draft) (string, error) {
	doc, err := encodeDocument(d)
	if err != nil {
		return "", err
	}
	var id string
	err = shared.Track(ctx, s.recorder, "firestore", "create", func() error {
		created, err := s.docs.CreateDocument(s.parent, s.collection, doc).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = path.Base(created.Name)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create kitchen recipe %q: %w", d.Title, err)
	}
	return id, nil
}

// value mirrors the Firestore REST Value encoding.
type value struct {
	StringValue    *string   `json:"stringValue,omitempty"`
	IntegerValue   *string   `json:"integerValue,omitempty"`
	DoubleValue    *float64  `json:"doubleValue,omitempty"`
	BooleanValue   *bool     `json:"booleanValue,omitempty"`
	TimestampValue *string   `json:"timestampValue,omitempty"`
	ArrayValue     *arrayVal `json:"arrayValue,omitempty"`
	MapValue       *mapVal   `json:"mapValue,omitempty"`
}

type arrayVal struct {
	Values []value `json:"values,omitempty"`
}

type mapVal struct {
	Fields map[string]value `json:"fields,omitempty"`
}

func (v value) plain() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		return *v.IntegerValue
	case v.DoubleValue != nil:
		return strconv.FormatFloat(*v.DoubleValue, 'f', -1, 64)
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, item.plain())
		}
		return out
	case v.MapValue != nil:
		out := make(map[string]any, len(v.MapValue.Fields))
		for k, item := range v.MapValue.Fields {
			out[k] = item.plain()
		}
		return out
	default:
		return nil
	}
}

func decodeDocument(doc *firestore.Document) (recipe.Recipe, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to marshal document fields: %w", err)
	}
	var fields map[string]value
	if err := json.Unmarshal(raw, &fields); err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to decode document fields: %w", err)
	}

	plain := make(map[string]any, len(fields))
	for k, v := range fields {
		plain[k] = v.plain()
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return recipe.Recipe{}, err
	}

	var rec recipe.Recipe
	if err := json.Unmarshal(data, &rec.Draft); err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to decode recipe %s: %w", doc.Name, err)
	}
	rec.ID = path.Base(doc.Name)
	rec.UpdatedAt = doc.UpdateTime
	rec.Source = recipe.SourceKitchen
	return rec, nil
}

func str(s string) value { return value{StringValue: &s} }

func strs(list []string) value {
	arr := &arrayVal{Values: make([]value, 0, len(list))}
	for _, s := range list {
		arr.Values = append(arr.Values, str(s))
	}
	return value{ArrayValue: arr}
}

func encodeDocument(d recipe.Draft) (*firestore.Document, error) {
	fields := map[string]value{
		"title":        str(d.Title),
		"image":        str(d.Image),
		"course":       str(d.Course),
		"cuisine":      str(d.Cuisine),
		"prepTime":     str(d.PrepTime),
		"cookTime":     str(d.CookTime),
		"ingredients":  strs(d.Ingredients),
		"instructions": strs(d.Instructions),
		"tags":         strs(d.Tags),
		"nutrition": {MapValue: &mapVal{Fields: map[string]value{
			"calories": str(string(d.Nutrition.Calories)),
			"protein":  str(string(d.Nutrition.Protein)),
			"carbs":    str(string(d.Nutrition.Carbs)),
			"fats":     str(string(d.Nutrition.Fats)),
		}}},
	}

	raw, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc firestore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return &doc, nil
}
