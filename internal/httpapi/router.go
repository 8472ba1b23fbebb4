package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"baby-meal-planner/internal/app"
	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/scoring"
)

// Server exposes the planner state as JSON for a local front end.
type Server struct {
	app    *app.App
	router *chi.Mux
}

// NewServer builds the router. Ingredient images are served from the
// configured images directory under the configured base URL.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, router: chi.NewRouter()}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.routes()
	return s
}

// Router returns the underlying mux so other handlers can be mounted on it.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if dir := s.app.Config.ImagesDir; dir != "" {
		prefix := strings.TrimRight(s.app.Config.ImagesBaseURL, "/")
		if prefix == "" {
			prefix = "/assets/ingredients"
		}
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir))))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ingredients", s.handleIngredients)
		r.Get("/recipes", s.handleRecipes)
		r.Get("/recipes/{id}", s.handleRecipe)
		r.Get("/plan", s.handlePlan)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/today", s.handleToday)
		r.Get("/shopping", s.handleShopping)
		r.Post("/shopping/{id}/toggle", s.handleShoppingToggle)
		r.Post("/shopping/restock", s.handleShoppingRestock)
		r.Get("/pantry", s.handlePantry)
		r.Post("/pantry/{id}/toggle", s.handlePantryToggle)
		r.Get("/profile", s.handleProfile)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type ingredientView struct {
	catalog.Ingredient
	Image   string `json:"image"`
	InStock bool   `json:"inStock"`
}

func (s *Server) handleIngredients(w http.ResponseWriter, r *http.Request) {
	ings := s.app.Catalog.Ingredients()
	if cat := r.URL.Query().Get("category"); cat != "" {
		ings = s.app.Catalog.IngredientsByCategory(catalog.Category(cat))
	}
	out := make([]ingredientView, len(ings))
	for i, ing := range ings {
		out[i] = ingredientView{Ingredient: ing, Image: s.app.Images.URL(ing.ID), InStock: s.app.Pantry.Has(ing.ID)}
	}
	writeJSON(w, http.StatusOK, out)
}

type recipeView struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Score              int      `json:"score"`
	AgeAppropriate     bool     `json:"isAgeAppropriate"`
	ReadyToCook        bool     `json:"readyToCook"`
	AllergyIngredients []string `json:"allergyIngredients"`
	MissingIngredients []string `json:"missingIngredients"`
	LovedIngredients   []string `json:"lovedIngredients"`
	Favorite           bool     `json:"favorite"`
	Rating             string   `json:"rating,omitempty"`
}

func (s *Server) recipeView(sr scoring.ScoredRecipe) recipeView {
	return recipeView{
		ID:                 sr.Recipe.ID,
		Title:              sr.Recipe.Title,
		Score:              sr.Score,
		AgeAppropriate:     sr.IsAgeAppropriate,
		ReadyToCook:        sr.ReadyToCook,
		AllergyIngredients: sr.AllergyIngredients,
		MissingIngredients: sr.MissingIngredients,
		LovedIngredients:   sr.LovedIngredients,
		Favorite:           s.app.Profile.IsFavorite(sr.Recipe.ID),
		Rating:             string(s.app.Profile.RecipeRating(sr.Recipe.ID)),
	}
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.app.FilterRecipes(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := make([]recipeView, len(recipes))
	for i, sr := range recipes {
		out[i] = s.recipeView(sr)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	sr, ok := s.app.Scoring.Recipe(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("recipe not found"))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		recipeView
		Steps []string `json:"steps"`
		Tips  string   `json:"tips"`
	}{s.recipeView(sr), sr.Recipe.Steps, sr.Recipe.Tips})
}

func (s *Server) handlePlan(w http.ResponseWriter, _ *http.Request) {
	plan, ok := s.app.Plans.CurrentPlan()
	resp := map[string]any{"currentPlan": nil, "historyCount": len(s.app.Plans.HistoryPlans())}
	if ok {
		resp["currentPlan"] = plan
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	today := s.app.Now()
	anchor := today
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("month must be YYYY-MM"))
			return
		}
		anchor = t
	}
	var planPtr *planner.WeekPlan
	if plan, ok := s.app.Plans.CurrentPlan(); ok {
		planPtr = &plan
	}
	writeJSON(w, http.StatusOK, planner.CalendarMonth(anchor, today, planPtr))
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	date := planner.FormatDate(s.app.Now())
	meals := s.app.Plans.GetMealsForDate(date)
	views := make([]recipeView, 0, len(meals))
	for _, id := range meals {
		if sr, ok := s.app.Scoring.Recipe(id); ok {
			views = append(views, s.recipeView(sr))
		}
	}
	image, _ := s.app.Images.MainIngredientImage(meals)
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "meals": views, "image": image})
}

func (s *Server) handleShopping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"thisWeek":       s.app.Shopping.ThisWeek(),
		"nextWeek":       s.app.Shopping.NextWeek(),
		"later":          s.app.Shopping.Later(),
		"pendingCount":   s.app.Shopping.PendingCount(),
		"purchasedCount": s.app.Shopping.PurchasedCount(),
	})
}

func (s *Server) handleShoppingToggle(w http.ResponseWriter, r *http.Request) {
	purchased := s.app.Shopping.TogglePurchased(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"purchased": purchased})
}

func (s *Server) handleShoppingRestock(w http.ResponseWriter, r *http.Request) {
	var added []string
	if r.URL.Query().Get("scope") == "this_week" {
		added = s.app.Shopping.AddThisWeekPurchasedToPantry()
	} else {
		added = s.app.Shopping.AddAllPurchasedToPantry()
	}
	if added == nil {
		added = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"added": added})
}

func (s *Server) handlePantry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Pantry.IDs())
}

func (s *Server) handlePantryToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.app.Catalog.Ingredient(id); !ok {
		writeError(w, http.StatusNotFound, errors.New("ingredient not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inStock": s.app.Pantry.Toggle(id)})
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	p := s.app.Profile
	writeJSON(w, http.StatusOK, map[string]any{
		"babyName":          p.BabyName(),
		"birthday":          p.Birthday(),
		"ageInMonths":       p.AgeInMonths(),
		"ageDisplay":        p.AgeDisplay(),
		"triedCount":        p.TriedCount(),
		"allergyCount":      p.AllergyCount(),
		"likedRecipesCount": p.LikedRecipesCount(),
		"favoriteRecipeIds": p.Favorites(),
	})
}
