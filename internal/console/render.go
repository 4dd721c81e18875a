package console

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"moodmate/internal/controller"
	"moodmate/internal/model"
	"moodmate/internal/taskbinding"
)

const ruleWidth = 48

func renderMessage(m model.Message) string {
	ts := color.HiBlackString(m.Timestamp.Format("15:04"))
	if m.Sender == model.SenderAI {
		return fmt.Sprintf("%s %s %s\n", ts, color.CyanString("companion:"), m.Text)
	}
	line := fmt.Sprintf("%s %s %s", ts, color.GreenString("you:"), m.Text)
	if m.Pending {
		line += color.HiBlackString(" (sending)")
	}
	return line + "\n"
}

func renderTranscript(msgs []model.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(renderMessage(m))
	}
	return sb.String()
}

// renderTask draws the task card, or nothing when no task is bound.
func renderTask(b taskbinding.Binding) string {
	task, ok := b.Task()
	if !ok {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("─", ruleWidth) + "\n")
	fmt.Fprintf(&sb, "%s %s  %s\n", taskbinding.Icon(task.Category), color.New(color.Bold).Sprint(task.Title), renderStatus(task.Status))
	if task.Description != "" {
		sb.WriteString(task.Description + "\n")
	}
	for i, step := range task.Steps {
		mark := "[ ]"
		if step.Completed {
			mark = color.GreenString("[x]")
		}
		fmt.Fprintf(&sb, "  %d. %s %s\n", i+1, mark, step.Label)
	}
	done, total := b.Progress()
	summary := fmt.Sprintf("%d/%d steps", done, total)
	if task.EstimatedTime != "" {
		summary += " · " + task.EstimatedTime
	}
	sb.WriteString(color.HiBlackString(summary) + "\n")
	if b.Completing() {
		sb.WriteString(color.YellowString("completing...") + "\n")
	}
	sb.WriteString(strings.Repeat("─", ruleWidth) + "\n")
	return sb.String()
}

func renderStatus(s model.TaskStatus) string {
	switch s {
	case model.TaskCompleted:
		return color.GreenString("completed")
	case model.TaskInProgress:
		return color.YellowString("in progress")
	default:
		return color.HiBlackString("pending")
	}
}

// renderDirectory lists sessions numbered from 1, marking the active one.
func renderDirectory(entries []model.ChatSession, isActive func(string) bool) string {
	if len(entries) == 0 {
		return "No conversations yet\n"
	}

	var sb strings.Builder
	for i, e := range entries {
		marker := " "
		title := e.Title
		if isActive(e.ID) {
			marker = color.CyanString("▸")
			title = color.New(color.Bold).Sprint(title)
		}
		fmt.Fprintf(&sb, "%s %2d. %s", marker, i+1, title)
		if e.HasTask() {
			fmt.Fprintf(&sb, " %s", renderStatus(e.TaskStatus))
		}
		sb.WriteString("\n")
		if e.LastMessagePreview != "" && e.LastMessagePreview != e.Title {
			fmt.Fprintf(&sb, "      %s\n", color.HiBlackString(e.LastMessagePreview))
		}
	}
	return sb.String()
}

func renderCelebration(s controller.State) string {
	task, _ := s.Task.Task()
	return color.MagentaString("🎉 Well done! You completed %q.", task.Title) + "\n"
}

func renderAlert(msg string) string {
	return color.RedString("! %s", msg) + "\n"
}

func resolveEntry(entries []model.ChatSession, arg string) (string, bool) {
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err == nil && fmt.Sprint(n) == arg {
		if n >= 1 && n <= len(entries) {
			return entries[n-1].ID, true
		}
		return "", false
	}
	return arg, arg != ""
}
