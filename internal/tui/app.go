package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/rendis/geofind/internal/config"
	"github.com/rendis/geofind/internal/engine/restcountries"
	"github.com/rendis/geofind/internal/engine/storage"
	"github.com/rendis/geofind/internal/mapsync"
	"github.com/rendis/geofind/internal/model"
	"github.com/rendis/geofind/internal/search"
	"github.com/rendis/geofind/internal/tui/components"
	"github.com/rendis/geofind/internal/tui/views"
)

const mapContainer = "country-map"

type viewID int

const (
	viewHome viewID = iota
	viewSearch
	viewHistory
)

// HistoryStore records and lists selections.
type HistoryStore interface {
	views.HistorySource
	Record(ctx context.Context, sessionID, query string, c model.Country, at time.Time) error
}

// Deps are the long-lived collaborators of the App. History may be nil.
type Deps struct {
	Controller *search.Controller
	Map        *components.MapView
	History    HistoryStore
	Logger     *zap.Logger
	SessionID  string
	ExportDir  string
	Version    string
}

type historyRecordedMsg struct {
	country string
	err     error
}

// App is the root bubbletea model.
type App struct {
	deps        Deps
	currentView viewID
	width       int
	height      int
	home        views.HomeModel
	search      views.SearchModel
	history     views.HistoryModel
}

func NewApp(deps Deps) App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return App{
		deps:        deps,
		currentView: viewHome,
		home:        views.NewHomeModel(deps.Version),
		search:      views.NewSearchModel(deps.Controller, deps.Map),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.home.Init(),
		a.search.Init(),
		views.ListenUpdates(a.deps.Controller.Updates()),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.routeKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.SnapshotMsg:
		var m tea.Model
		m, _ = a.search.Update(msg)
		a.search = m.(views.SearchModel)
		return a, views.ListenUpdates(a.deps.Controller.Updates())

	case views.SelectedMsg:
		return a, a.recordCmd(msg)

	case historyRecordedMsg:
		if msg.err != nil {
			a.deps.Logger.Warn("recording selection failed",
				zap.String("country", msg.country), zap.Error(msg.err))
		}
		return a, nil

	case views.NavigateToSearch:
		a.currentView = viewSearch
		var cmd tea.Cmd
		if msg.Query != "" {
			cmd = a.search.Prefill(msg.Query)
		}
		return a, tea.Batch(cmd, a.sizeCmd())

	case views.NavigateToHistory:
		a.currentView = viewHistory
		a.history = views.NewHistoryModel(a.historySource(), a.deps.ExportDir)
		return a, tea.Batch(a.history.Init(), a.sizeCmd())

	case views.NavigateToHome:
		a.currentView = viewHome
		return a, nil
	}

	// Everything else reaches the search view even in the background, so
	// its frame and spinner tickers keep running.
	var cmds []tea.Cmd
	var m tea.Model
	var cmd tea.Cmd

	m, cmd = a.search.Update(msg)
	a.search = m.(views.SearchModel)
	cmds = append(cmds, cmd)

	if a.currentView == viewHistory {
		m, cmd = a.history.Update(msg)
		a.history = m.(views.HistoryModel)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) routeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var m tea.Model
	var cmd tea.Cmd
	switch a.currentView {
	case viewHome:
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewSearch:
		m, cmd = a.search.Update(msg)
		a.search = m.(views.SearchModel)
	case viewHistory:
		m, cmd = a.history.Update(msg)
		a.history = m.(views.HistoryModel)
	}
	return a, cmd
}

func (a App) historySource() views.HistorySource {
	if a.deps.History == nil {
		return nil
	}
	return a.deps.History
}

func (a App) recordCmd(msg views.SelectedMsg) tea.Cmd {
	store := a.deps.History
	if store == nil {
		return nil
	}
	session := a.deps.SessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := store.Record(ctx, session, msg.Query, msg.Selection.Country, time.Now())
		return historyRecordedMsg{country: msg.Selection.Country.CommonName, err: err}
	}
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewSearch:
		content = a.search.View()
	case viewHistory:
		content = a.history.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly shown views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run wires the search controller, the map and the history store, then
// starts the TUI. The map is created before the first frame and destroyed
// after the program exits.
func Run(cfg *config.Config, logger *zap.Logger, version string) error {
	policy, err := search.ParseRacePolicy(cfg.Search.RacePolicy)
	if err != nil {
		return err
	}

	client := restcountries.NewClient(cfg.API.BaseURL, cfg.API.Proxy, cfg.API.Timeout)
	ctrl := search.NewController(client, logger, search.Options{
		Debounce: cfg.Search.Debounce,
		Policy:   policy,
	})
	defer ctrl.Close()

	svc := components.NewMapService(60, 14)
	syncer := mapsync.New(svc, mapsync.Config{
		Container: mapContainer,
		Style:     cfg.Map.Style,
		Center:    orb.Point{cfg.Map.Lng, cfg.Map.Lat},
		Zoom:      cfg.Map.Zoom,
		FlyZoom:   cfg.Map.FlyZoom,
	}, logger)
	if err := syncer.Mount(); err != nil {
		return err
	}
	defer syncer.Unmount()
	syncer.Attach(ctrl)

	deps := Deps{
		Controller: ctrl,
		Map:        svc.Map(mapContainer),
		Logger:     logger,
		SessionID:  uuid.NewString(),
		ExportDir:  config.Dir(),
		Version:    version,
	}

	store, err := storage.NewStore(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", zap.String("path", cfg.History.Path), zap.Error(err))
	} else {
		defer store.Close()
		deps.History = store
	}

	logger.Info("session started",
		zap.String("session", deps.SessionID),
		zap.String("race_policy", policy.String()))

	p := tea.NewProgram(NewApp(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
