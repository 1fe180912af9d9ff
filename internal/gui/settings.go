package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/config"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
)

var providerOptions = []string{
	llm.ProviderAICore,
	llm.ProviderVertexAI,
	llm.ProviderAnthropic,
	llm.ProviderOpenAI,
	llm.ProviderNone,
}

var fallbackOptions = []string{
	string(comparison.FallbackDisabled),
	string(comparison.FallbackRuleBased),
}

// settingsValues mirrors the editable fields of the Settings tab
type settingsValues struct {
	Provider      string
	Model         string
	APIURL        string
	AuthURL       string
	ClientID      string
	ClientSecret  string
	ResourceGroup string
	Project       string
	Location      string
	Credentials   string
	GmailCreds    string
	Fallback      string
}

func settingsFromConfig(cfg *config.Config) settingsValues {
	return settingsValues{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		APIURL:        cfg.AICore.APIURL,
		AuthURL:       cfg.AICore.AuthURL,
		ClientID:      cfg.AICore.ClientID,
		ClientSecret:  cfg.AICore.ClientSecret,
		ResourceGroup: cfg.AICore.ResourceGroup,
		Project:       cfg.Google.Project,
		Location:      cfg.Google.Location,
		Credentials:   cfg.Google.CredentialsPath,
		GmailCreds:    cfg.Google.GmailCredentialsPath,
		Fallback:      cfg.Fallback,
	}
}

// apply returns a copy of cfg with the edited values
func (v settingsValues) apply(cfg *config.Config) *config.Config {
	out := *cfg
	out.LLM.Provider = v.Provider
	out.LLM.Model = v.Model
	out.AICore.APIURL = v.APIURL
	out.AICore.AuthURL = v.AuthURL
	out.AICore.ClientID = v.ClientID
	out.AICore.ClientSecret = v.ClientSecret
	out.AICore.ResourceGroup = v.ResourceGroup
	out.Google.Project = v.Project
	out.Google.Location = v.Location
	out.Google.CredentialsPath = v.Credentials
	out.Google.GmailCredentialsPath = v.GmailCreds
	out.Fallback = v.Fallback
	return &out
}

// createSettingsTab creates the settings tab
func (a *App) createSettingsTab() fyne.CanvasObject {
	current := settingsFromConfig(a.config)

	providerSelect := widget.NewSelect(providerOptions, nil)
	providerSelect.SetSelected(current.Provider)

	modelEntry := widget.NewEntry()
	modelEntry.SetText(current.Model)
	modelEntry.SetPlaceHolder("AI Core deployment ID or model name")

	apiURLEntry := widget.NewEntry()
	apiURLEntry.SetText(current.APIURL)
	authURLEntry := widget.NewEntry()
	authURLEntry.SetText(current.AuthURL)
	clientIDEntry := widget.NewEntry()
	clientIDEntry.SetText(current.ClientID)
	clientSecretEntry := widget.NewPasswordEntry()
	clientSecretEntry.SetText(current.ClientSecret)
	resourceGroupEntry := widget.NewEntry()
	resourceGroupEntry.SetText(current.ResourceGroup)

	projectEntry := widget.NewEntry()
	projectEntry.SetText(current.Project)
	locationEntry := widget.NewEntry()
	locationEntry.SetText(current.Location)
	googleCredsEntry := widget.NewEntry()
	googleCredsEntry.SetText(current.Credentials)
	gmailCredsEntry := widget.NewEntry()
	gmailCredsEntry.SetText(current.GmailCreds)

	fallbackSelect := widget.NewSelect(fallbackOptions, nil)
	fallbackSelect.SetSelected(string(a.config.FallbackPolicy()))

	form := widget.NewForm(
		widget.NewFormItem("AI Provider", providerSelect),
		widget.NewFormItem("Model / Deployment", modelEntry),
		widget.NewFormItem("AI Core API URL", apiURLEntry),
		widget.NewFormItem("AI Core Auth URL", authURLEntry),
		widget.NewFormItem("AI Core Client ID", clientIDEntry),
		widget.NewFormItem("AI Core Client Secret", clientSecretEntry),
		widget.NewFormItem("AI Core Resource Group", resourceGroupEntry),
		widget.NewFormItem("Google Cloud Project", projectEntry),
		widget.NewFormItem("Google Cloud Location", locationEntry),
		widget.NewFormItem("Google Credentials", a.fileRow(googleCredsEntry)),
		widget.NewFormItem("Gmail Credentials", a.fileRow(gmailCredsEntry)),
		widget.NewFormItem("When AI Fails", fallbackSelect),
	)

	edited := func() *config.Config {
		return settingsValues{
			Provider:      providerSelect.Selected,
			Model:         modelEntry.Text,
			APIURL:        apiURLEntry.Text,
			AuthURL:       authURLEntry.Text,
			ClientID:      clientIDEntry.Text,
			ClientSecret:  clientSecretEntry.Text,
			ResourceGroup: resourceGroupEntry.Text,
			Project:       projectEntry.Text,
			Location:      locationEntry.Text,
			Credentials:   googleCredsEntry.Text,
			GmailCreds:    gmailCredsEntry.Text,
			Fallback:      fallbackSelect.Selected,
		}.apply(a.config)
	}

	saveBtn := widget.NewButton("Save Settings", func() {
		cfg := edited()
		if err := a.saveConfig(cfg); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}

		a.config = cfg
		a.deploymentEntry.SetPlaceHolder(cfg.EffectiveModel())
		a.rebuild()

		dialog.ShowInformation("Success", "Settings saved successfully", a.mainWindow)
	})

	testBtn := widget.NewButton("Validate", func() {
		if err := edited().Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Configuration is valid", a.mainWindow)
	})

	return container.NewVScroll(container.NewVBox(
		form,
		container.NewHBox(saveBtn, testBtn),
	))
}

func (a *App) saveConfig(cfg *config.Config) error {
	if a.configPath != "" {
		return cfg.SaveTo(a.configPath)
	}
	return cfg.Save()
}
