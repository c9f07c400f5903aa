package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/setup"
	"github.com/njoerd114/placereminder/internal/viewmodel"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	placeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// bindMessages prints the view-model's one-shot messages to w and returns a
// func that detaches the observers.
func bindMessages(w io.Writer, b *viewmodel.Base) func() {
	cancels := []func(){
		b.ShowSnackBar.Observe(func(msg string) { fmt.Fprintln(w, warnStyle.Render("! "+msg)) }),
		b.ShowErrorMessage.Observe(func(msg string) { fmt.Fprintln(w, errorStyle.Render("✗ "+msg)) }),
		b.ShowToast.Observe(func(msg string) { fmt.Fprintln(w, successStyle.Render("✓ "+msg)) }),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// --- list --------------------------------------------------------------------

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath, false, logger)
	if err != nil {
		return err
	}
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	active := map[string]bool{}
	if regs, err := a.registry.List(ctx); err == nil {
		for _, r := range regs {
			active[r.ID] = true
		}
	} else {
		logger.Warn("listing geofences", "error", err)
	}

	vm := viewmodel.NewRemindersList(ctx, a.repo, logger)
	defer vm.Close()
	unbind := bindMessages(os.Stderr, &vm.Base)
	defer unbind()

	var items []model.ReminderItem
	vm.Reminders.Observe(func(v []model.ReminderItem) { items = v })
	noData := false
	vm.ShowNoData.Observe(func(v bool) { noData = v })

	vm.LoadReminders()
	vm.Wait()

	if noData {
		fmt.Println(mutedStyle.Render("No reminders yet. Add one with 'placereminder add'."))
		return nil
	}
	fmt.Print(renderReminders(items, active))
	return nil
}

// renderReminders formats items as a table. active marks reminders whose
// geofence is currently registered.
func renderReminders(items []model.ReminderItem, active map[string]bool) string {
	titleW, placeW := len("TITLE"), len("PLACE")
	for _, it := range items {
		titleW = max(titleW, len([]rune(it.Title)))
		placeW = max(placeW, len([]rune(it.Location)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s\n",
		headerStyle.Render(padRight("TITLE", titleW)),
		headerStyle.Render(padRight("PLACE", placeW)),
		headerStyle.Render(padRight("COORDINATES", 21)),
		headerStyle.Render("GEOFENCE"),
	)
	for _, it := range items {
		fence := mutedStyle.Render("none")
		if active[it.ID] {
			fence = activeStyle.Render("active")
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			padRight(it.Title, titleW),
			placeStyle.Render(padRight(it.Location, placeW)),
			mutedStyle.Render(padRight(formatPoint(it.Latitude, it.Longitude), 21)),
			fence,
		)
		if it.Description != "" {
			fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(it.Description))
		}
	}
	fmt.Fprintf(&b, "\n%s\n", mutedStyle.Render(fmt.Sprintf("%d reminder(s)", len(items))))
	return b.String()
}

func formatPoint(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f,%.5f", *lat, *lng)
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// --- add ---------------------------------------------------------------------

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	id := fs.String("id", "", "update the reminder with this ID instead of creating one")
	title := fs.String("title", "", "reminder title")
	desc := fs.String("description", "", "optional description")
	place := fs.String("place", "", "name of the place")
	lat := fs.Float64("lat", 0, "latitude of the place")
	lng := fs.Float64("lng", 0, "longitude of the place")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath, false, logger)
	if err != nil {
		return err
	}
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	vm := viewmodel.NewSaveReminder(ctx, a.repo, a.registry, geofenceOptions(cfg), logger)
	defer vm.Close()
	unbind := bindMessages(os.Stdout, &vm.Base)
	defer unbind()

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	form := addForm{
		Title:       *title,
		Description: *desc,
		Place:       *place,
		Latitude:    *lat,
		Longitude:   *lng,
		HasPoint:    set["lat"] && set["lng"],
	}
	if form.Title == "" || form.Place == "" || !form.HasPoint {
		fmt.Println(titleStyle.Render("New location reminder"))
		form.prompt(setup.NewPrompter(os.Stdin, os.Stdout))
	}

	res := saveForm(ctx, vm, form, *id)
	if res.Outcome != viewmodel.OutcomeSaved {
		return fmt.Errorf("reminder not saved: %s", res.Message)
	}
	fmt.Println(mutedStyle.Render("id " + res.Item.ID))
	return nil
}

// addForm holds the values entered for a new reminder.
type addForm struct {
	Title       string
	Description string
	Place       string
	Latitude    float64
	Longitude   float64
	HasPoint    bool
}

// prompt asks for every value that was not given on the command line.
func (f *addForm) prompt(p *setup.Prompter) {
	if f.Title == "" {
		f.Title = p.String("Title", "")
	}
	if f.Description == "" {
		f.Description = p.Optional("Description")
	}
	if f.Place == "" {
		f.Place = p.String("Place", "")
	}
	if !f.HasPoint {
		f.Latitude = p.Float("Latitude", 0)
		f.Longitude = p.Float("Longitude", 0)
		f.HasPoint = true
	}
}

// saveForm fills the view-model's form state from f and saves it.
func saveForm(ctx context.Context, vm *viewmodel.SaveReminder, f addForm, id string) viewmodel.SaveResult {
	vm.ReminderTitle.Set(f.Title)
	vm.ReminderDescription.Set(f.Description)
	if f.HasPoint {
		vm.SelectPOI(viewmodel.POI{Name: f.Place, Latitude: f.Latitude, Longitude: f.Longitude})
	} else {
		vm.SelectedLocation.Set(f.Place)
	}
	item := vm.Item()
	if id != "" {
		item.ID = id
	}
	return vm.Save(ctx, item)
}

// --- clear -------------------------------------------------------------------

func runClear(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath, false, logger)
	if err != nil {
		return err
	}
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if !*yes && !setup.NewPrompter(os.Stdin, os.Stdout).Confirm("Delete all reminders and geofences?", false) {
		fmt.Println(mutedStyle.Render("Nothing deleted."))
		return nil
	}

	ctx := context.Background()
	if err := clearAll(ctx, a.repo, a.registry); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ All reminders deleted."))
	return nil
}

type reminderClearer interface {
	DeleteAllReminders(ctx context.Context) error
}

type geofenceClearer interface {
	RemoveAll(ctx context.Context) error
}

// clearAll deletes every reminder, then every geofence registration.
func clearAll(ctx context.Context, repo reminderClearer, geofences geofenceClearer) error {
	if err := repo.DeleteAllReminders(ctx); err != nil {
		return fmt.Errorf("deleting reminders: %w", err)
	}
	if err := geofences.RemoveAll(ctx); err != nil {
		return fmt.Errorf("removing geofences: %s", geofence.Message(err))
	}
	return nil
}
