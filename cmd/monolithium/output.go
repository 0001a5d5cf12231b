package main

import (
	"github.com/fatih/color"

	"github.com/seantiz/monolithium/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// statusText colours a run status for terminal listings.
func statusText(status string) string {
	switch status {
	case model.StatusCompleted:
		return green(status)
	case model.StatusFailed:
		return red(status)
	case model.StatusRunning:
		return yellow(status)
	default:
		return status
	}
}
