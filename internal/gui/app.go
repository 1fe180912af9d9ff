package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/fmuoria/doc-compare-agent/internal/bootstrap"
	"github.com/fmuoria/doc-compare-agent/internal/config"
	"github.com/fmuoria/doc-compare-agent/internal/export"
	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

const (
	// gmailCredentialsFilename is the expected filename for Gmail API credentials
	gmailCredentialsFilename = "credentials.json"

	sourceGmail   = "Gmail"
	sourceUploads = "Uploads folder"
)

// Options configures the desktop application
type Options struct {
	Config     *config.Config
	ConfigPath string // empty saves to the default config path
	Logger     *slog.Logger
}

// App represents the main GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config
	configPath string
	logger     *slog.Logger

	mu         sync.Mutex
	components *bootstrap.Components
	cancelFunc context.CancelFunc

	// Compare tab
	specEntry       *widget.Entry
	responseEntry   *widget.Entry
	deploymentEntry *widget.Entry
	ruleBasedCheck  *widget.Check
	compareBtn      *widget.Button
	compareCancel   *widget.Button
	compareProgress *widget.ProgressBarInfinite
	compareStatus   *widget.Label
	overallLabel    *widget.Label
	summaryLabel    *widget.Label
	categoryTable   *widget.Table
	compareExport   *widget.Button
	comparison      *models.ComparisonResult

	// Batch tab
	gmailStatusLabel *widget.Label
	authenticateBtn  *widget.Button
	batchSpecEntry   *widget.Entry
	subjectEntry     *widget.Entry
	sourceRadio      *widget.RadioGroup
	processBtn       *widget.Button
	cancelBtn        *widget.Button
	progressBar      *widget.ProgressBar
	progressLabel    *widget.Label
	resultsTable     *widget.Table
	exportBtn        *widget.Button
	results          []models.RankedResponse
	batchSpec        string
	aiStatusLabel    *widget.Label
}

// NewApp creates a new GUI application
func NewApp(opts Options) *App {
	a := app.New()
	w := a.NewWindow("Document Comparison Agent")
	w.Resize(fyne.NewSize(1100, 750))

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	guiApp := &App{
		fyneApp:    a,
		mainWindow: w,
		config:     cfg,
		configPath: opts.ConfigPath,
		logger:     logging.OrDiscard(opts.Logger),
	}

	guiApp.setupUI()
	guiApp.rebuild()

	return guiApp
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.ShowAndRun()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components.Close()
}

// rebuild recreates the comparison stack from the current config, falling back to rule-based scoring
func (a *App) rebuild() {
	a.config.ApplyToEnv()

	c, err := bootstrap.Build(context.Background(), a.config, bootstrap.Options{Logger: a.logger})
	status := fmt.Sprintf("AI provider: %s", a.config.LLM.Provider)
	if err != nil {
		a.logger.Warn("AI provider unavailable, using rule-based scoring", slog.Any("error", err))
		c, err = bootstrap.Build(context.Background(), a.config, bootstrap.Options{Logger: a.logger, RuleBased: true})
		status = "AI provider unavailable, rule-based scoring only"
	}
	if err != nil {
		dialog.ShowError(err, a.mainWindow)
		return
	}

	a.mu.Lock()
	old := a.components
	a.components = c
	a.mu.Unlock()
	old.Close()

	a.aiStatusLabel.SetText(status)
}

func (a *App) current() *bootstrap.Components {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.components
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	a.aiStatusLabel = widget.NewLabel("")

	tabs := container.NewAppTabs(
		container.NewTabItem("Compare", a.createCompareTab()),
		container.NewTabItem("Batch Ranking", a.createBatchTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)

	a.mainWindow.SetContent(container.NewBorder(nil, a.aiStatusLabel, nil, nil, tabs))
}

// fileRow returns an entry with a Browse button that fills it from a file dialog
func (a *App) fileRow(entry *widget.Entry) fyne.CanvasObject {
	btn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				entry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})
	return container.NewBorder(nil, nil, nil, btn, entry)
}

// createCompareTab creates the single comparison tab
func (a *App) createCompareTab() fyne.CanvasObject {
	a.specEntry = widget.NewEntry()
	a.specEntry.SetPlaceHolder("Specification document (.pdf, .docx, .doc, .txt)")
	a.responseEntry = widget.NewEntry()
	a.responseEntry.SetPlaceHolder("Response document (.pdf, .docx, .doc, .txt)")
	a.deploymentEntry = widget.NewEntry()
	a.deploymentEntry.SetPlaceHolder(a.config.EffectiveModel())
	a.ruleBasedCheck = widget.NewCheck("Rule-based scoring only", nil)

	form := widget.NewForm(
		widget.NewFormItem("Specification", a.fileRow(a.specEntry)),
		widget.NewFormItem("Response", a.fileRow(a.responseEntry)),
		widget.NewFormItem("Deployment", a.deploymentEntry),
		widget.NewFormItem("", a.ruleBasedCheck),
	)

	a.compareBtn = widget.NewButton("Compare", a.handleCompare)
	a.compareCancel = widget.NewButton("Cancel", a.handleCancel)
	a.compareCancel.Disable()
	a.compareProgress = widget.NewProgressBarInfinite()
	a.compareProgress.Stop()
	a.compareProgress.Hide()
	a.compareStatus = widget.NewLabel("Ready")

	a.overallLabel = widget.NewLabel("")
	a.overallLabel.TextStyle = fyne.TextStyle{Bold: true}
	a.summaryLabel = widget.NewLabel("")
	a.summaryLabel.Wrapping = fyne.TextWrapWord

	a.categoryTable = widget.NewTable(
		func() (int, int) {
			if a.comparison == nil {
				return 1, len(categoryHeaders)
			}
			return len(a.comparison.Categories) + 1, len(categoryHeaders) // +1 for header
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Template")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			if id.Row == 0 {
				label.SetText(categoryHeaders[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			label.TextStyle = fyne.TextStyle{}
			if a.comparison != nil && id.Row-1 < len(a.comparison.Categories) {
				label.SetText(categoryCell(a.comparison.Categories[id.Row-1], id.Col))
			}
		},
	)
	for col, width := range []float32{240, 70, 70, 90, 120, 420} {
		a.categoryTable.SetColumnWidth(col, width)
	}

	a.compareExport = widget.NewButton("Export to Excel", a.handleCompareExport)
	a.compareExport.Disable()

	top := container.NewVBox(
		form,
		container.NewHBox(a.compareBtn, a.compareCancel, a.compareStatus),
		a.compareProgress,
		widget.NewSeparator(),
		a.overallLabel,
		a.summaryLabel,
	)

	return container.NewBorder(top, a.compareExport, nil, nil, a.categoryTable)
}

// handleCompare runs one comparison in the background
func (a *App) handleCompare() {
	specPath := strings.TrimSpace(a.specEntry.Text)
	responsePath := strings.TrimSpace(a.responseEntry.Text)
	if specPath == "" || responsePath == "" {
		dialog.ShowError(fmt.Errorf("please select both a specification and a response document"), a.mainWindow)
		return
	}

	components := a.current()
	if components == nil {
		dialog.ShowError(fmt.Errorf("comparison service is not available, check Settings"), a.mainWindow)
		return
	}
	compare := components.Service.CompareDocuments
	if a.ruleBasedCheck.Checked && components.Service.HasAnalyzer() {
		rb, err := bootstrap.Build(context.Background(), a.config, bootstrap.Options{Logger: a.logger, RuleBased: true})
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		compare = rb.Service.CompareDocuments
	}

	a.compareBtn.Disable()
	a.compareCancel.Enable()
	a.compareExport.Disable()
	a.compareProgress.Show()
	a.compareProgress.Start()
	a.compareStatus.SetText("Extracting documents...")

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancelFunc = cancel
	a.mu.Unlock()
	deployment := strings.TrimSpace(a.deploymentEntry.Text)

	go func() {
		defer cancel()
		result, err := compareFiles(ctx, compare, specPath, responsePath, deployment, func(msg string) {
			fyne.Do(func() { a.compareStatus.SetText(msg) })
		})

		// All UI updates must be done on the main thread using fyne.Do
		fyne.Do(func() {
			a.compareBtn.Enable()
			a.compareCancel.Disable()
			a.compareProgress.Stop()
			a.compareProgress.Hide()

			if err != nil {
				if errors.Is(err, context.Canceled) {
					a.compareStatus.SetText("Comparison canceled")
				} else {
					a.compareStatus.SetText("Error: " + err.Error())
					dialog.ShowError(err, a.mainWindow)
				}
				return
			}

			a.comparison = result
			a.overallLabel.SetText(overallText(result))
			a.summaryLabel.SetText(result.Summary)
			a.categoryTable.Refresh()
			a.compareExport.Enable()
			a.compareStatus.SetText(fmt.Sprintf("Complete (%s)", result.Method))
		})
	}()
}

type compareFunc func(ctx context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error)

// compareFiles extracts both files and runs compare, reporting each step through status
func compareFiles(ctx context.Context, compare compareFunc, specPath, responsePath, deployment string, status func(string)) (*models.ComparisonResult, error) {
	specText, err := ingestion.ExtractFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}
	responseText, err := ingestion.ExtractFile(responsePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	status("Comparing documents...")
	return compare(ctx, specText, responseText, deployment)
}

// handleCompareExport exports the single comparison to Excel
func (a *App) handleCompareExport() {
	if a.comparison == nil {
		dialog.ShowError(fmt.Errorf("no comparison to export"), a.mainWindow)
		return
	}

	result := a.comparison
	specName := filepath.Base(a.specEntry.Text)
	responseName := strings.TrimSuffix(filepath.Base(a.responseEntry.Text), filepath.Ext(a.responseEntry.Text))

	a.showSaveDialog(exportFileName("Comparison", time.Now()), func(path string) (string, error) {
		return export.ExportComparison(specName, responseName, result, path)
	})
}

// createBatchTab creates the batch ranking tab
func (a *App) createBatchTab() fyne.CanvasObject {
	// Gmail authentication section
	a.gmailStatusLabel = widget.NewLabel("Gmail: Not Authenticated")
	a.authenticateBtn = widget.NewButton("Authenticate Gmail", a.handleAuthenticate)

	authSection := container.NewVBox(
		widget.NewLabel("Gmail Authentication"),
		container.NewHBox(a.gmailStatusLabel, a.authenticateBtn),
	)

	a.batchSpecEntry = widget.NewEntry()
	a.batchSpecEntry.SetPlaceHolder("Specification document")

	a.subjectEntry = widget.NewEntry()
	a.subjectEntry.SetPlaceHolder("e.g., RFP-2024 Response")

	a.sourceRadio = widget.NewRadioGroup([]string{sourceGmail, sourceUploads}, func(s string) {
		if s == sourceGmail {
			a.subjectEntry.Enable()
		} else {
			a.subjectEntry.Disable()
		}
	})
	a.sourceRadio.Horizontal = true
	a.sourceRadio.SetSelected(sourceGmail)

	inputSection := widget.NewForm(
		widget.NewFormItem("Specification", a.fileRow(a.batchSpecEntry)),
		widget.NewFormItem("Responses from", a.sourceRadio),
		widget.NewFormItem("Email Subject", a.subjectEntry),
	)

	// Progress section
	a.progressBar = widget.NewProgressBar()
	a.progressLabel = widget.NewLabel("Ready")
	a.processBtn = widget.NewButton("Start Processing", a.handleProcess)
	a.cancelBtn = widget.NewButton("Cancel", a.handleCancel)
	a.cancelBtn.Disable()

	progressSection := container.NewVBox(
		a.progressLabel,
		a.progressBar,
		container.NewHBox(a.processBtn, a.cancelBtn),
	)

	// Results section
	a.resultsTable = widget.NewTable(
		func() (int, int) {
			return len(a.results) + 1, len(rankingHeaders) // +1 for header
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Template")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			if id.Row == 0 {
				label.SetText(rankingHeaders[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			label.TextStyle = fyne.TextStyle{}
			if id.Row-1 < len(a.results) {
				label.SetText(rankingCell(a.results[id.Row-1], id.Col))
			}
		},
	)
	for col, width := range []float32{60, 220, 100, 120, 110, 100} {
		a.resultsTable.SetColumnWidth(col, width)
	}

	a.exportBtn = widget.NewButton("Export to Excel", a.handleExport)
	a.exportBtn.Disable()

	top := container.NewVBox(
		authSection,
		widget.NewSeparator(),
		inputSection,
		widget.NewSeparator(),
		progressSection,
		widget.NewSeparator(),
		widget.NewLabel("Results"),
	)

	return container.NewBorder(top, a.exportBtn, nil, nil, a.resultsTable)
}

// handleAuthenticate handles Gmail authentication
func (a *App) handleAuthenticate() {
	credsPath := a.config.Google.GmailCredentialsPath
	if credsPath == "" {
		credsPath = gmailCredentialsFilename
	}

	if _, err := os.Stat(credsPath); os.IsNotExist(err) {
		dialog.ShowError(fmt.Errorf("%s not found. Please configure Gmail credentials in Settings", credsPath), a.mainWindow)
		return
	}

	// Show loading dialog
	progressDialog := dialog.NewCustomWithoutButtons("Authenticating",
		widget.NewLabel("Authenticating with Gmail...\nCheck the console for the OAuth URL if your browser doesn't open."),
		a.mainWindow)
	progressDialog.Show()

	a.authenticateBtn.Disable()

	// Creating the handler triggers the OAuth flow when no token is stored
	go func() {
		_, err := bootstrap.GmailFactory(a.config, a.logger)(context.Background(), nil)

		fyne.Do(func() {
			progressDialog.Hide()
			a.authenticateBtn.Enable()
			if err != nil {
				dialog.ShowError(fmt.Errorf("authentication failed: %w", err), a.mainWindow)
				return
			}
			a.gmailStatusLabel.SetText("Gmail: Authenticated")
			dialog.ShowInformation("Success", "Gmail authenticated successfully!\nYou can now rank responses from Gmail.", a.mainWindow)
		})
	}()
}

// handleProcess ranks responses from Gmail or the uploads folder
func (a *App) handleProcess() {
	specPath := strings.TrimSpace(a.batchSpecEntry.Text)
	if specPath == "" {
		dialog.ShowError(fmt.Errorf("please select a specification document"), a.mainWindow)
		return
	}

	fromGmail := a.sourceRadio.Selected == sourceGmail
	subject := strings.TrimSpace(a.subjectEntry.Text)
	if fromGmail && subject == "" {
		dialog.ShowError(fmt.Errorf("please enter an email subject filter"), a.mainWindow)
		return
	}

	components := a.current()
	if components == nil {
		dialog.ShowError(fmt.Errorf("comparison service is not available, check Settings"), a.mainWindow)
		return
	}
	ag := components.Agent

	a.processBtn.Disable()
	a.cancelBtn.Enable()
	a.exportBtn.Disable()

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancelFunc = cancel
	a.mu.Unlock()

	ag.SetProgressCallback(func(current, total int, message string) {
		fyne.Do(func() {
			a.progressBar.SetValue(float64(current) / float64(max(total, 1)))
			a.progressLabel.SetText(message)
		})
	})

	go func() {
		defer cancel()
		var err error
		if fromGmail {
			err = ag.IngestFromGmailWithContext(ctx, subject, specPath)
		} else {
			err = ag.IngestFromUploadWithContext(ctx, specPath)
		}

		fyne.Do(func() {
			a.processBtn.Enable()
			a.cancelBtn.Disable()

			if err != nil {
				if errors.Is(err, context.Canceled) {
					a.progressLabel.SetText("Processing canceled")
				} else {
					a.progressLabel.SetText("Error: " + err.Error())
					dialog.ShowError(err, a.mainWindow)
				}
				return
			}

			a.results = ag.GetResults()
			a.batchSpec = ag.Specification()
			a.resultsTable.Refresh()
			a.exportBtn.Enable()

			a.progressLabel.SetText(fmt.Sprintf("Complete! Ranked %d responses", len(a.results)))

			fyne.CurrentApp().SendNotification(&fyne.Notification{
				Title:   "Ranking Complete",
				Content: fmt.Sprintf("Successfully ranked %d responses", len(a.results)),
			})
		})
	}()
}

// handleCancel cancels the running comparison or ranking
func (a *App) handleCancel() {
	a.mu.Lock()
	cancel := a.cancelFunc
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		a.progressLabel.SetText("Canceling...")
		a.compareStatus.SetText("Canceling...")
	}
}

// handleExport exports the ranking to Excel
func (a *App) handleExport() {
	if len(a.results) == 0 {
		dialog.ShowError(fmt.Errorf("no results to export"), a.mainWindow)
		return
	}

	report := models.BatchReport{
		Specification: a.batchSpec,
		Responses:     a.results,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	a.showSaveDialog(exportFileName("Ranking", time.Now()), func(path string) (string, error) {
		return export.ExportToExcel(report, path)
	})
}

func (a *App) showSaveDialog(defaultName string, write func(path string) (string, error)) {
	d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return // User canceled
		}
		defer uc.Close()

		written, err := write(uc.URI().Path())
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}

		dialog.ShowInformation("Success", "Results exported successfully to "+filepath.Base(written), a.mainWindow)
	}, a.mainWindow)
	d.SetFileName(defaultName)
	d.Show()
}
