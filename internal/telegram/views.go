package telegram

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"baby-meal-planner/internal/app"
	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/metrics"
	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/shopping"
	"baby-meal-planner/internal/wizard"
)

// Callback actions. Data is "<action>|<arg>|<arg>", well under Telegram's 64 bytes.
const (
	actionWizardDate      = "wd"
	actionWizardRecipe    = "wr"
	actionWizardAssign    = "wa"
	actionWizardNext      = "wn"
	actionWizardPrev      = "wp"
	actionWizardFinish    = "wf"
	actionWizardCancel    = "wx"
	actionNoop            = "nop"
	actionShoppingToggle  = "sp"
	actionShoppingRestock = "sa"
)

const (
	maxRecipeChoices   = 12
	maxShoppingButtons = 20
)

var errUnknownAction = errors.New("unknown action")

const helpText = `👶 *Baby Meal Planner*

/today - today's meals
/plan - this week's plan
/wizard - plan the week step by step
/cancel - abandon the wizard
/shopping - shopping list
/pantry - what is in stock
/have <ingredients> - add to the pantry
/need <ingredients> - remove from the pantry
/recipes [recommended|ready|safe|age|all] - scored recipes
/status - baby profile summary`

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func callback(action string, args ...string) string {
	return strings.Join(append([]string{action}, args...), "|")
}

func parseCallback(data string) (string, []string) {
	parts := strings.Split(data, "|")
	return parts[0], parts[1:]
}

func dayLabel(date string) string {
	t, err := planner.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Mon 01-02")
}

// resolveIngredients matches tokens against ingredient ids and display names.
func resolveIngredients(c *catalog.Catalog, tokens []string) (ids, unknown []string) {
	byName := make(map[string]string)
	for _, ing := range c.Ingredients() {
		byName[ing.Name] = ing.ID
	}
	for _, tok := range tokens {
		tok = strings.Trim(tok, ",")
		if tok == "" {
			continue
		}
		if _, ok := c.Ingredient(tok); ok {
			ids = append(ids, tok)
		} else if id, ok := byName[tok]; ok {
			ids = append(ids, id)
		} else {
			unknown = append(unknown, tok)
		}
	}
	return ids, unknown
}

func mealTitles(a *app.App, ids []string) string {
	titles := make([]string, len(ids))
	for i, id := range ids {
		titles[i] = escape(a.Catalog.RecipeTitle(id))
	}
	return strings.Join(titles, ", ")
}

func formatToday(a *app.App) string {
	date := planner.FormatDate(a.Now())
	meals := a.Plans.GetMealsForDate(date)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽 *Today* (%s)\n\n", dayLabel(date))
	if len(meals) == 0 {
		sb.WriteString("_Nothing planned for today._")
		return sb.String()
	}
	for _, id := range meals {
		fmt.Fprintf(&sb, "• %s\n", escape(a.Catalog.RecipeTitle(id)))
		sr, ok := a.Scoring.Recipe(id)
		if !ok {
			continue
		}
		if sr.HasAllergyIngredients {
			fmt.Fprintf(&sb, "  ⚠️ Allergy: %s\n", escape(strings.Join(sr.AllergyIngredients, ", ")))
		}
		if len(sr.MissingIngredients) > 0 {
			fmt.Fprintf(&sb, "  🛒 Missing: %s\n", escape(strings.Join(sr.MissingIngredients, ", ")))
		}
	}
	return sb.String()
}

func formatPlan(a *app.App) string {
	plan, ok := a.Plans.CurrentPlan()
	if !ok {
		return "📅 No plan for this week yet. Send /wizard to make one."
	}
	return formatWeekPlan(a, plan)
}

func formatWeekPlan(a *app.App, plan planner.WeekPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *Week of %s*\n\n", plan.WeekStartDate)
	for _, date := range plan.Dates() {
		meals := plan.Meals[date]
		if len(meals) == 0 {
			fmt.Fprintf(&sb, "*%s*: -\n", dayLabel(date))
			continue
		}
		fmt.Fprintf(&sb, "*%s*: %s\n", dayLabel(date), mealTitles(a, meals))
	}
	fmt.Fprintf(&sb, "\n_%d meals planned_", plan.MealCount())
	return sb.String()
}

var shoppingGroups = []struct {
	group shopping.TimeGroup
	title string
}{
	{shopping.ThisWeek, "📍 This week"},
	{shopping.NextWeek, "🔜 Next week"},
	{shopping.Later, "🗓 Later"},
}

func shoppingView(a *app.App) (string, *tgbotapi.InlineKeyboardMarkup) {
	items := a.Shopping.Items()
	if len(items) == 0 {
		return "🛒 *Shopping List*\n\n_Nothing to buy._", nil
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	for _, g := range shoppingGroups {
		header := false
		for _, it := range items {
			if it.TimeGroup != g.group {
				continue
			}
			if !header {
				fmt.Fprintf(&sb, "\n*%s*\n", g.title)
				header = true
			}
			mark := "⬜"
			if it.Purchased {
				mark = "☑️"
			}
			fmt.Fprintf(&sb, "%s %s (%s)\n", mark, escape(it.Name), dayLabel(it.EarliestDate))
		}
	}
	fmt.Fprintf(&sb, "\n_%d pending, %d purchased_", a.Shopping.PendingCount(), a.Shopping.PurchasedCount())

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, it := range items {
		if i == maxShoppingButtons {
			break
		}
		label := "⬜ " + it.Name
		if it.Purchased {
			label = "☑️ " + it.Name
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callback(actionShoppingToggle, it.IngredientID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🧺 Restock purchased", callback(actionShoppingRestock, "all")),
		tgbotapi.NewInlineKeyboardButtonData("🧺 This week only", callback(actionShoppingRestock, "week")),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &keyboard
}

func formatPantry(a *app.App) string {
	if a.Pantry.Count() == 0 {
		return "🥕 *Pantry*\n\n_Empty. Add items with /have._"
	}
	byCategory := make(map[catalog.Category][]string)
	for _, id := range a.Pantry.IDs() {
		cat := catalog.CategoryOther
		if ing, ok := a.Catalog.Ingredient(id); ok {
			cat = ing.Category
		}
		byCategory[cat] = append(byCategory[cat], a.Catalog.IngredientName(id))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🥕 *Pantry* (%d)\n\n", a.Pantry.Count())
	for _, cat := range catalog.Categories {
		if names := byCategory[cat]; len(names) > 0 {
			fmt.Fprintf(&sb, "*%s*: %s\n", cat, escape(strings.Join(names, ", ")))
		}
	}
	return sb.String()
}

func formatRecipes(a *app.App, filter string) (string, error) {
	recipes, err := a.FilterRecipes(filter)
	if err != nil {
		return "", err
	}
	if filter == "" {
		filter = app.FilterRecommended
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🥣 *Recipes* (%s, %s)\n\n", filter, a.Profile.AgeDisplay())
	if len(recipes) == 0 {
		sb.WriteString("_No matching recipes._")
		return sb.String(), nil
	}
	for _, sr := range recipes {
		icon := "•"
		switch {
		case sr.HasAllergyIngredients:
			icon = "⚠️"
		case sr.ReadyToCook:
			icon = "✅"
		}
		fmt.Fprintf(&sb, "%s *%s* (%d)", icon, escape(sr.Recipe.Title), sr.Score)
		if len(sr.MissingIngredients) > 0 && !sr.ReadyToCook {
			fmt.Fprintf(&sb, " - need %s", escape(strings.Join(sr.MissingIngredients, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatStatus(a *app.App) string {
	p := a.Profile
	name := p.BabyName()
	if name == "" {
		name = "Baby"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👶 *%s* (%s)\n\n", escape(name), p.AgeDisplay())
	fmt.Fprintf(&sb, "• Tried: %d ingredients\n", p.TriedCount())
	fmt.Fprintf(&sb, "• Allergies: %d\n", p.AllergyCount())
	fmt.Fprintf(&sb, "• Liked recipes: %d\n", p.LikedRecipesCount())
	fmt.Fprintf(&sb, "• Pantry: %d items\n", a.Pantry.Count())
	fmt.Fprintf(&sb, "• To buy this week: %d\n", a.Shopping.ThisWeekPendingCount())
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, latency metrics.LatencySummary, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}
	if latency.Count > 0 {
		fmt.Fprintf(&sb, "• Latency: %.0fms avg, %.0fms median, %.0fms p95\n", latency.MeanMS, latency.MedianMS, latency.P95MS)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

type finishResult struct {
	plan    planner.WeekPlan
	skipped []wizard.Assignment
}

// applyWizardAction runs one callback against the session. A non-nil result
// means the plan was saved and the session is over.
func applyWizardAction(s *wizard.Session, action string, args []string) (*finishResult, error) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch action {
	case actionNoop:
		return nil, nil
	case actionWizardDate:
		switch arg(0) {
		case "all":
			return nil, s.SelectAllDates()
		case "last":
			return nil, s.UseLastWeek()
		default:
			return nil, s.ToggleDate(arg(0))
		}
	case actionWizardRecipe:
		_, err := s.ToggleRecipe(arg(0))
		return nil, err
	case actionWizardAssign:
		if arg(0) == "auto" {
			return nil, s.AutoAssign()
		}
		idx, err := strconv.Atoi(arg(1))
		recipes := s.SelectedRecipes()
		if err != nil || idx < 0 || idx >= len(recipes) {
			return nil, errUnknownAction
		}
		date, id := arg(0), recipes[idx]
		if slices.Contains(s.Assignments()[date], id) {
			return nil, s.RemoveAssignment(date, id)
		}
		return nil, s.AssignRecipeToDate(date, id)
	case actionWizardNext:
		return nil, s.Next()
	case actionWizardPrev:
		return nil, s.Prev()
	case actionWizardFinish:
		plan, skipped, err := s.Finish()
		if err != nil {
			return nil, err
		}
		return &finishResult{plan: plan, skipped: skipped}, nil
	case actionWizardCancel:
		s.Close()
		return nil, nil
	default:
		return nil, errUnknownAction
	}
}

func wizardErrorText(err error) string {
	switch {
	case errors.Is(err, wizard.ErrNoDatesSelected):
		return "Pick at least one date first."
	case errors.Is(err, wizard.ErrNoRecipesSelected):
		return "Pick at least one recipe first."
	case errors.Is(err, wizard.ErrRecipeLimit):
		return fmt.Sprintf("You can pick at most %d recipes.", wizard.MaxRecipes)
	case errors.Is(err, planner.ErrDailyMealLimit):
		return fmt.Sprintf("A day holds at most %d meals.", planner.MaxMealsPerDay)
	case errors.Is(err, wizard.ErrNoLastWeekPlan):
		return "There is no plan from last week to copy."
	case errors.Is(err, wizard.ErrDateNotSelected):
		return "Select that date on step 1 first."
	case errors.Is(err, wizard.ErrWrongStep), errors.Is(err, wizard.ErrClosed):
		return "This button is no longer active."
	default:
		return "Something went wrong."
	}
}

func navRow(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

func check(selected bool, label string) string {
	if selected {
		return "✅ " + label
	}
	return label
}

// wizardView renders the current wizard step.
func wizardView(a *app.App, s *wizard.Session) (string, *tgbotapi.InlineKeyboardMarkup) {
	var (
		sb   strings.Builder
		rows [][]tgbotapi.InlineKeyboardButton
	)
	back := tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callback(actionWizardPrev))
	next := tgbotapi.NewInlineKeyboardButtonData("Next ➡️", callback(actionWizardNext))

	switch s.Step() {
	case wizard.StepPickDates:
		selected := s.SelectedDates()
		fmt.Fprintf(&sb, "🗓 *Step 1/4: Pick dates*\n\n%d selected", len(selected))
		if s.CopyingLastWeek() {
			sb.WriteString("\n_Copying last week's meals_")
		}
		var row []tgbotapi.InlineKeyboardButton
		for _, date := range s.WeekDates() {
			label := check(slices.Contains(selected, date), dayLabel(date))
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callback(actionWizardDate, date)))
			if len(row) == 4 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		rows = append(rows, navRow(
			tgbotapi.NewInlineKeyboardButtonData("Select all", callback(actionWizardDate, "all")),
			tgbotapi.NewInlineKeyboardButtonData(check(s.CopyingLastWeek(), "Copy last week"), callback(actionWizardDate, "last")),
		))
		rows = append(rows, navRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", callback(actionWizardCancel)),
			next,
		))

	case wizard.StepPickRecipes:
		selected := s.SelectedRecipes()
		fmt.Fprintf(&sb, "🥣 *Step 2/4: Pick recipes*\n\n%d of %d selected", len(selected), wizard.MaxRecipes)

		var candidates []string
		for _, sr := range a.Scoring.Recommended() {
			if len(candidates) == maxRecipeChoices {
				break
			}
			candidates = append(candidates, sr.Recipe.ID)
		}
		for _, id := range selected {
			if !slices.Contains(candidates, id) {
				candidates = append(candidates, id)
			}
		}
		for _, id := range candidates {
			label := check(slices.Contains(selected, id), a.Catalog.RecipeTitle(id))
			rows = append(rows, navRow(tgbotapi.NewInlineKeyboardButtonData(label, callback(actionWizardRecipe, id))))
		}
		rows = append(rows, navRow(back, next))

	case wizard.StepAssign:
		recipes := s.SelectedRecipes()
		assignments := s.Assignments()
		sb.WriteString("🍽 *Step 3/4: Assign meals*\n\n")
		for i, id := range recipes {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, escape(a.Catalog.RecipeTitle(id)))
		}
		sb.WriteString("\n")
		for _, date := range s.SelectedDates() {
			fmt.Fprintf(&sb, "*%s*: %s\n", dayLabel(date), orDash(mealTitles(a, assignments[date])))

			row := []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(dayLabel(date), callback(actionNoop)),
			}
			for i, id := range recipes {
				label := check(slices.Contains(assignments[date], id), strconv.Itoa(i+1))
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callback(actionWizardAssign, date, strconv.Itoa(i))))
			}
			rows = append(rows, row)
		}
		rows = append(rows, navRow(
			back,
			tgbotapi.NewInlineKeyboardButtonData("🎲 Auto", callback(actionWizardAssign, "auto")),
			next,
		))

	case wizard.StepReview:
		assignments := s.Assignments()
		sb.WriteString("📋 *Step 4/4: Review*\n\n")
		for _, date := range s.SelectedDates() {
			fmt.Fprintf(&sb, "*%s*: %s\n", dayLabel(date), orDash(mealTitles(a, assignments[date])))
		}
		rows = append(rows, navRow(
			back,
			tgbotapi.NewInlineKeyboardButtonData("✅ Save plan", callback(actionWizardFinish)),
		))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &keyboard
}

func formatFinish(a *app.App, r *finishResult) string {
	var sb strings.Builder
	sb.WriteString("✅ *Plan saved!*\n\n")
	sb.WriteString(formatWeekPlan(a, r.plan))
	if len(r.skipped) > 0 {
		sb.WriteString("\n\n⚠️ Not added (day already full):\n")
		for _, as := range r.skipped {
			fmt.Fprintf(&sb, "• %s on %s\n", escape(a.Catalog.RecipeTitle(as.RecipeID)), dayLabel(as.Date))
		}
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
