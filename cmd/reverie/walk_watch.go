// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

// =============================================================================
// Messages
// =============================================================================

// walkFrameMsg carries one websocket frame into the model.
type walkFrameMsg wsFrame

// walkStreamClosedMsg fires when the reader goroutine exits.
type walkStreamClosedMsg struct{}

// =============================================================================
// Entry
// =============================================================================

// runWalkWatch streams a walk over the websocket endpoint. Machine mode
// skips the TUI and prints plain PROGRESS lines instead.
func runWalkWatch(req walkRequest) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		streamWalkPlain(req)
		return
	}

	frames, cleanup, err := openWalkStream(req)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	defer cleanup()

	program := tea.NewProgram(newWalkWatchModel(frames))
	final, err := program.Run()
	if err != nil {
		ux.Error(fmt.Sprintf("Watcher failed: %v", err))
		os.Exit(1)
	}

	model, ok := final.(walkWatchModel)
	if !ok {
		return
	}
	switch {
	case model.cancelled:
		ux.Warning("Walk cancelled")
	case model.errMsg != "":
		ux.Error(model.errMsg)
		os.Exit(1)
	default:
		renderWalkResult(model.walkID, model.result)
	}
}

// openWalkStream dials the walker service, sends the request, and returns a
// channel the reader goroutine feeds. The channel closes when the stream ends.
func openWalkStream(req walkRequest) (chan wsFrame, func(), error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsWalkURL(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to walker service: %w", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("sending walk request: %w", err)
	}

	frames := make(chan wsFrame, 8)
	go func() {
		defer close(frames)
		for {
			var frame wsFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frames <- frame
			if frame.Type != "progress" {
				return
			}
		}
	}()
	return frames, func() { conn.Close() }, nil
}

func wsWalkURL() string {
	base := serverBaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimSuffix(base, "/") + "/v1/walk/stream"
}

// streamWalkPlain is the machine-mode path: one PROGRESS line per depth,
// then the result as JSON on stdout or the error on stderr.
func streamWalkPlain(req walkRequest) {
	frames, cleanup, err := openWalkStream(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	for frame := range frames {
		switch frame.Type {
		case "progress":
			if frame.Progress != nil {
				fmt.Printf("PROGRESS: depth=%d frontier=%d collected=%d\n",
					frame.Progress.Depth, frame.Progress.Frontier, frame.Progress.Collected)
			}
		case "result":
			printJSON(walkResponse{WalkID: frame.WalkID, Result: frame.Result})
			return
		case "error":
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", frame.Error)
			os.Exit(1)
		}
	}
	fmt.Fprintln(os.Stderr, "ERROR: stream closed before a result arrived")
	os.Exit(1)
}

// =============================================================================
// Model
// =============================================================================

type walkWatchModel struct {
	spinner   spinner.Model
	frames    chan wsFrame
	progress  []walkProgressFrame
	walkID    string
	result    *walkResult
	errMsg    string
	done      bool
	cancelled bool
}

func newWalkWatchModel(frames chan wsFrame) walkWatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Moon
	sp.Style = watchSpinnerStyle
	return walkWatchModel{
		spinner: sp,
		frames:  frames,
	}
}

func waitForFrame(frames chan wsFrame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-frames
		if !ok {
			return walkStreamClosedMsg{}
		}
		return walkFrameMsg(frame)
	}
}

func (m walkWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForFrame(m.frames))
}

func (m walkWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		}

	case walkFrameMsg:
		frame := wsFrame(msg)
		switch frame.Type {
		case "progress":
			if frame.Progress != nil {
				m.progress = append(m.progress, *frame.Progress)
			}
			return m, waitForFrame(m.frames)
		case "result":
			m.walkID = frame.WalkID
			m.result = frame.Result
			m.done = true
			return m, tea.Quit
		case "error":
			m.errMsg = frame.Error
			m.done = true
			return m, tea.Quit
		}
		return m, waitForFrame(m.frames)

	case walkStreamClosedMsg:
		if !m.done {
			m.errMsg = "stream closed before a result arrived"
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m walkWatchModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("Walking the graph"))
	b.WriteString("\n")
	for _, p := range m.progress {
		b.WriteString(fmt.Sprintf("  %s depth %d: frontier %d, collected %d\n",
			watchDoneStyle.Render(string(ux.IconSuccess)), p.Depth, p.Frontier, p.Collected))
	}
	b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), watchDimStyle.Render("walking...")))
	b.WriteString(watchDimStyle.Render("  q to cancel"))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Styles
// =============================================================================

var (
	watchTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ux.ColorDuskBright)
	watchDoneStyle    = lipgloss.NewStyle().Foreground(ux.ColorSuccess)
	watchDimStyle     = lipgloss.NewStyle().Foreground(ux.ColorShadow)
	watchSpinnerStyle = lipgloss.NewStyle().Foreground(ux.ColorMoonGold)
)
