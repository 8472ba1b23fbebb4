package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"baby-meal-planner/internal/app"
	"baby-meal-planner/internal/auth"
	"baby-meal-planner/internal/config"
	"baby-meal-planner/internal/httpapi"
	"baby-meal-planner/internal/profile"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	if application.Auth.Configured() {
		if _, err := application.Auth.Restore(ctx); err != nil && !errors.Is(err, auth.ErrNotSignedIn) {
			log.Printf("Warning: %v", err)
		}
	}

	if err := run(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "plan":
		a.WritePlan(os.Stdout)
	case "today":
		a.WriteToday(os.Stdout)
	case "status":
		a.WriteStatus(os.Stdout)
	case "shopping":
		return runShopping(a, args)
	case "recipes":
		fs := flag.NewFlagSet("recipes", flag.ExitOnError)
		filter := fs.String("filter", app.FilterRecommended, "One of: "+strings.Join(app.RecipeFilters, ", "))
		fs.Parse(args)
		return a.WriteRecipes(os.Stdout, *filter)
	case "pantry":
		return runPantry(a, args)
	case "profile":
		return runProfile(a, args)
	case "ingredient":
		return runIngredient(a, args)
	case "favorite":
		if len(args) != 1 {
			return errors.New("usage: favorite <recipe-id>")
		}
		if _, ok := a.Catalog.Recipe(args[0]); !ok {
			return fmt.Errorf("unknown recipe %q", args[0])
		}
		if a.Profile.ToggleFavorite(args[0]) {
			fmt.Printf("Added %s to favorites.\n", a.Catalog.RecipeTitle(args[0]))
		} else {
			fmt.Printf("Removed %s from favorites.\n", a.Catalog.RecipeTitle(args[0]))
		}
	case "rate":
		if len(args) != 2 {
			return errors.New("usage: rate <recipe-id> <like|normal|dislike|none>")
		}
		return rateRecipe(a, args[0], args[1])
	case "wizard":
		return runWizard(a, args)
	case "image-prompts":
		return runImagePrompts(ctx, a, args)
	case "signup", "login":
		return runAuth(ctx, a, cmd, args)
	case "logout":
		if err := a.Auth.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out. Local profile cleared.")
	case "whoami":
		if u, ok := a.Auth.CurrentUser(); ok {
			fmt.Printf("%s (%s)\n", u.Email, u.ID)
		} else {
			fmt.Println("Not signed in.")
		}
	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)
		if a.Metrics == nil {
			return errors.New("metrics need STORAGE_BACKEND=sqlite")
		}
		affected, err := a.Metrics.Cleanup(*days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		port := fs.String("port", a.Config.Port, "Port to listen on")
		fs.Parse(args)
		return serve(a, *port)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	return nil
}

func runShopping(a *app.App, args []string) error {
	fs := flag.NewFlagSet("shopping", flag.ExitOnError)
	xlsxPath := fs.String("xlsx", "", "Write the list and plan to this .xlsx file")
	toggle := fs.String("toggle", "", "Toggle the purchased flag of an ingredient")
	restock := fs.String("restock", "", "Move purchased items to the pantry: all or week")
	fs.Parse(args)

	if *toggle != "" {
		state := "pending"
		if a.Shopping.TogglePurchased(*toggle) {
			state = "purchased"
		}
		fmt.Printf("%s is now %s.\n", a.Catalog.IngredientName(*toggle), state)
	}

	switch *restock {
	case "":
	case "all":
		fmt.Printf("Moved %d items to the pantry.\n", len(a.Shopping.AddAllPurchasedToPantry()))
	case "week":
		fmt.Printf("Moved %d items to the pantry.\n", len(a.Shopping.AddThisWeekPurchasedToPantry()))
	default:
		return fmt.Errorf("unknown restock scope %q", *restock)
	}

	if *xlsxPath == "" {
		a.WriteShopping(os.Stdout)
		return nil
	}
	f, err := os.Create(*xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *xlsxPath, err)
	}
	if err := a.WriteXLSX(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", *xlsxPath, err)
	}
	fmt.Printf("Wrote %s\n", *xlsxPath)
	return nil
}

func runPantry(a *app.App, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		a.WritePantry(os.Stdout)
		return nil
	}
	ids, err := ingredientIDs(a, args[1:])
	if err != nil {
		return err
	}
	switch args[0] {
	case "add":
		a.Pantry.Add(ids...)
	case "remove":
		a.Pantry.Remove(ids...)
	case "clear":
		a.Pantry.Clear()
	default:
		return fmt.Errorf("unknown pantry action %q (expected add, remove, clear or list)", args[0])
	}
	a.WritePantry(os.Stdout)
	return nil
}

func ingredientIDs(a *app.App, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, id := range args {
		if _, ok := a.Catalog.Ingredient(id); !ok {
			return nil, fmt.Errorf("unknown ingredient %q", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runProfile(a *app.App, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", a.Profile.BabyName(), "Baby's name")
	birthday := fs.String("birthday", a.Profile.Birthday(), "Birthday as YYYY-MM-DD")
	fs.Parse(args)

	if err := a.Profile.SetBabyInfo(*name, *birthday); err != nil {
		return err
	}
	a.WriteStatus(os.Stdout)
	return nil
}

func runIngredient(a *app.App, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ingredient <id> [--tried] [--allergy=true|false] [--preference love|neutral|dislike] [--note text] [--reset]")
	}
	id := args[0]
	if _, ok := a.Catalog.Ingredient(id); !ok {
		return fmt.Errorf("unknown ingredient %q", id)
	}

	fs := flag.NewFlagSet("ingredient", flag.ExitOnError)
	tried := fs.Bool("tried", false, "Mark as tried")
	allergy := fs.String("allergy", "", "Set the allergy flag: true or false")
	pref := fs.String("preference", "", "love, neutral, dislike or none")
	note := fs.String("note", "", "Free-text note")
	reset := fs.Bool("reset", false, "Forget everything recorded for the ingredient")
	fs.Parse(args[1:])

	if *reset {
		a.Profile.ResetIngredientState(id)
		fmt.Printf("%s reset.\n", a.Catalog.IngredientName(id))
		return nil
	}

	var u profile.IngredientStateUpdate
	if *tried {
		st := profile.StatusTried
		u.Status = &st
	}
	switch *allergy {
	case "":
	case "true", "false":
		v := *allergy == "true"
		u.Allergy = &v
	default:
		return fmt.Errorf("invalid --allergy %q", *allergy)
	}
	switch *pref {
	case "":
	case "none":
		p := profile.PreferenceNone
		u.Preference = &p
	case string(profile.PreferenceLove), string(profile.PreferenceNeutral), string(profile.PreferenceDislike):
		p := profile.Preference(*pref)
		u.Preference = &p
	default:
		return fmt.Errorf("invalid --preference %q", *pref)
	}
	if *note != "" {
		u.Note = note
	}

	st := a.Profile.UpdateIngredientState(id, u)
	fmt.Printf("%s: %s, allergy=%t, preference=%s\n", a.Catalog.IngredientName(id), st.Status, st.Allergy, orNone(string(st.Preference)))
	return nil
}

func rateRecipe(a *app.App, id, rating string) error {
	if _, ok := a.Catalog.Recipe(id); !ok {
		return fmt.Errorf("unknown recipe %q", id)
	}
	var r profile.Rating
	switch rating {
	case "none":
		r = profile.RatingNone
	case string(profile.RatingLike), string(profile.RatingNormal), string(profile.RatingDislike):
		r = profile.Rating(rating)
	default:
		return fmt.Errorf("invalid rating %q", rating)
	}
	a.Profile.SetRecipeRating(id, r)
	fmt.Printf("%s rated %s.\n", a.Catalog.RecipeTitle(id), orNone(string(r)))
	return nil
}

// runWizard drives the planning wizard non-interactively: dates, recipes,
// then a random assignment unless last week is being copied.
func runWizard(a *app.App, args []string) error {
	fs := flag.NewFlagSet("wizard", flag.ExitOnError)
	dates := fs.String("dates", "all", "Comma-separated dates, or all")
	recipes := fs.String("recipes", "", "Comma-separated recipe ids")
	copyLast := fs.Bool("copy-last-week", false, "Start from last week's plan")
	fs.Parse(args)

	s := a.NewWizard()
	defer s.Close()

	if *dates == "all" {
		if err := s.SelectAllDates(); err != nil {
			return err
		}
	} else {
		for _, d := range splitList(*dates) {
			if err := s.ToggleDate(d); err != nil {
				return err
			}
		}
	}
	if *copyLast {
		if err := s.UseLastWeek(); err != nil {
			return err
		}
	}
	if err := s.Next(); err != nil {
		return err
	}

	for _, id := range splitList(*recipes) {
		if _, ok := a.Catalog.Recipe(id); !ok {
			return fmt.Errorf("unknown recipe %q", id)
		}
		if _, err := s.ToggleRecipe(id); err != nil {
			return err
		}
	}
	if err := s.Next(); err != nil {
		return err
	}

	if !*copyLast {
		if err := s.AutoAssign(); err != nil {
			return err
		}
	}
	if err := s.Next(); err != nil {
		return err
	}

	_, skipped, err := s.Finish()
	if err != nil {
		return err
	}
	for _, as := range skipped {
		fmt.Printf("Skipped %s on %s: day is full.\n", a.Catalog.RecipeTitle(as.RecipeID), as.Date)
	}
	a.WritePlan(os.Stdout)
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runImagePrompts(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("image-prompts", flag.ExitOnError)
	asHTML := fs.Bool("html", false, "Render an HTML page instead of markdown")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.Parse(args)

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}

	review, err := a.WriteImagePrompts(ctx, w, *asHTML)
	if err != nil {
		return err
	}
	if review > 0 {
		log.Printf("Warning: %d ingredient names need manual review", review)
	}
	return nil
}

func runAuth(ctx context.Context, a *app.App, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("--email and --password are required")
	}

	if cmd == "signup" {
		u, signedIn, err := a.Auth.SignUp(ctx, *email, *password)
		if err != nil {
			return err
		}
		if !signedIn {
			fmt.Printf("Check %s to confirm the account.\n", u.Email)
			return nil
		}
		fmt.Printf("Signed up and signed in as %s.\n", u.Email)
		return nil
	}

	s, err := a.Auth.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", s.User.Email)
	return nil
}

func serve(a *app.App, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: httpapi.NewServer(a),
	}

	go func() {
		log.Printf("Planner API listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctxShutdown)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func printUsage() {
	fmt.Println("Usage: baby-meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan               Show this week's plan")
	fmt.Println("  today              Show today's meals")
	fmt.Println("  wizard             Plan the week (--dates, --recipes, --copy-last-week)")
	fmt.Println("  shopping           Show the shopping list (--toggle, --restock, --xlsx)")
	fmt.Println("  recipes            List scored recipes (--filter)")
	fmt.Println("  pantry             add|remove|clear|list ingredients in stock")
	fmt.Println("  profile            Set the baby's name and birthday")
	fmt.Println("  ingredient         Record tried, allergy and preference for an ingredient")
	fmt.Println("  favorite           Toggle a favorite recipe")
	fmt.Println("  rate               Rate a recipe")
	fmt.Println("  status             Show the profile summary")
	fmt.Println("  image-prompts      Generate AI image prompts for ingredients (--html, --out)")
	fmt.Println("  signup, login      Authenticate with the identity provider (--email, --password)")
	fmt.Println("  logout             Sign out and clear the local profile")
	fmt.Println("  whoami             Show the signed-in user")
	fmt.Println("  metrics-cleanup    Remove old metric records")
	fmt.Println("  serve              Serve the JSON API and ingredient images")
}
