package images

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"baby-meal-planner/internal/catalog"
)

// PlaceholderURL is served when an ingredient has no image.
const PlaceholderURL = "https://placehold.co/200x200/e2e8f0/64748b?text=Food"

// Resolver maps ingredient ids to image URLs: a local <id>.png first, then
// the catalog's imageUrl, then the placeholder.
type Resolver struct {
	catalog *catalog.Catalog
	baseURL string
	local   map[string]string
}

// NewResolver indexes the .png files in dir, served under baseURL. An empty
// or missing dir leaves the resolver with remote URLs and placeholders only.
func NewResolver(c *catalog.Catalog, dir, baseURL string) (*Resolver, error) {
	r := &Resolver{catalog: c, baseURL: strings.TrimRight(baseURL, "/"), local: make(map[string]string)}
	if dir == "" {
		return r, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read image directory %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(path.Ext(name), ".png") {
			continue
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		r.local[id] = r.baseURL + "/" + name
	}
	return r, nil
}

// HasLocal reports whether id has a local image.
func (r *Resolver) HasLocal(id string) bool {
	_, ok := r.local[id]
	return ok
}

// AvailableIDs returns the ids with a local image, sorted.
func (r *Resolver) AvailableIDs() []string {
	ids := make([]string, 0, len(r.local))
	for id := range r.local {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Resolver) lookup(id string) (string, bool) {
	if u, ok := r.local[id]; ok {
		return u, true
	}
	if r.catalog != nil {
		if ing, ok := r.catalog.Ingredient(id); ok && ing.ImageURL != "" {
			return ing.ImageURL, true
		}
	}
	return "", false
}

// URL returns the image for an ingredient, never empty.
func (r *Resolver) URL(id string) string {
	if u, ok := r.lookup(id); ok {
		return u
	}
	return PlaceholderURL
}

// MainIngredientImage returns the image of the first ingredient of the first
// recipe in recipeIDs, as shown on a calendar day. It reports false when
// there is nothing better than the placeholder.
func (r *Resolver) MainIngredientImage(recipeIDs []string) (string, bool) {
	if len(recipeIDs) == 0 || r.catalog == nil {
		return "", false
	}
	rec, ok := r.catalog.Recipe(recipeIDs[0])
	if !ok || len(rec.IngredientIDs) == 0 {
		return "", false
	}
	return r.lookup(rec.IngredientIDs[0])
}
