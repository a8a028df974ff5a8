package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/govsnap/internal/model"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

const separator = "    ─────────────────────────────────"

func printStartupBanner(cfg appConfig) {
	fmt.Println(renderStartupBanner(cfg))
}

func renderStartupBanner(cfg appConfig) string {
	check := greenStyle.Render("●")
	dot := dimStyle.Render("●")

	logo := cyanStyle.Bold(true).Render(`
    ╔═╗╔═╗╦  ╦╔═╗╔╗╔╔═╗╔═╗
    ║ ╦║ ║╚╗╔╝╚═╗║║║╠═╣╠═╝
    ╚═╝╚═╝ ╚╝ ╚═╝╝╚╝╩ ╩╩  `)

	lines := []string{"", logo, "    " + dimStyle.Render("v"+version), "", dimStyle.Render(separator), ""}

	lines = append(lines, boldStyle.Render("    Source"), "")
	lines = append(lines, fmt.Sprintf("    %s  Endpoint       %s", check, cyanStyle.Render(cfg.Endpoint)))
	lines = append(lines, fmt.Sprintf("    %s  Spaces         %s", check, dimStyle.Render(strings.Join(cfg.Spaces, ", "))))
	lines = append(lines, fmt.Sprintf("    %s  Space Delay    %s", check, dimStyle.Render(cfg.NamespaceDelay.String())))
	lines = append(lines, fmt.Sprintf("    %s  Retries        %s", check, dimStyle.Render(fmt.Sprintf("%d attempts", cfg.RetryMaxAttempts))))
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Output"), "")
	lines = append(lines, fmt.Sprintf("    %s  Directory      %s", check, dimStyle.Render(shortenPath(cfg.OutputDir))))
	if cfg.DBPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Staging DB     %s", check, dimStyle.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Staging DB     %s", check, dimStyle.Render("in-memory")))
	}
	if cfg.BucketURL != "" {
		lines = append(lines, fmt.Sprintf("    %s  Upload         %s", check, cyanStyle.Render(cfg.BucketURL)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Upload         %s", dot, dimStyle.Render("disabled")))
	}
	if cfg.KeepLast > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Keep Last      %s", check, dimStyle.Render(fmt.Sprintf("%d runs", cfg.KeepLast))))
	}
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyanStyle.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dimStyle.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dimStyle.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dimStyle.Render("default (no file)")))
	}
	lines = append(lines, "", dimStyle.Render(separator), "")

	return strings.Join(lines, "\n")
}

func printRunSummary(summary *model.RunSummary, files []string) {
	fmt.Println(renderRunSummary(summary, files))
}

func renderRunSummary(summary *model.RunSummary, files []string) string {
	check := greenStyle.Render("●")
	warn := yellowStyle.Render("●")

	lines := []string{boldStyle.Render("    Run " + summary.RunID), ""}
	lines = append(lines, fmt.Sprintf("    %s  Proposals      %s", check, cyanStyle.Render(fmt.Sprint(summary.Proposals))))
	lines = append(lines, fmt.Sprintf("    %s  Votes          %s", check, cyanStyle.Render(fmt.Sprint(summary.Votes))))
	if summary.Unresolved > 0 {
		lines = append(lines, fmt.Sprintf("    %s  No Label       %s", warn, yellowStyle.Render(fmt.Sprint(summary.Unresolved))))
	}
	lines = append(lines, fmt.Sprintf("    %s  Duration       %s", check, dimStyle.Render(summary.Duration.Round(time.Second).String())))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("    %s  Wrote          %s", check, dimStyle.Render(shortenPath(f))))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
