package agent

import (
	"fmt"
	"strings"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

// StepMemory keeps a short rolling history for the model and detects loops,
// both a single action repeated in a row and a repeated pair of actions.
type StepMemory struct {
	lines     []string
	maxLines  int
	fullLines []string

	lastActionKey string
	repeatCount   int
	loopThreshold int

	recentKeys    []string
	maxRecent     int
	patternLen    int
	patternCounts map[string]int

	loopTriggered bool
}

func NewStepMemory(maxLines, loopThreshold int) *StepMemory {
	if maxLines <= 0 {
		maxLines = 5
	}
	if loopThreshold <= 1 {
		loopThreshold = 2
	}
	return &StepMemory{
		maxLines:      maxLines,
		loopThreshold: loopThreshold,
		maxRecent:     10,
		patternLen:    2,
		patternCounts: make(map[string]int),
	}
}

func actionKey(url string, action llm.Action) string {
	return fmt.Sprintf("%s|%s|%d", action.Type, url, action.TargetID)
}

// Add records an executed action.
func (m *StepMemory) Add(step int, url string, action llm.Action) {
	m.appendLine(fmt.Sprintf(
		"step=%d url=%s action=%s target=%d text=%q",
		step, url, action.Type, action.TargetID, action.Text,
	))

	key := actionKey(url, action)
	if key == m.lastActionKey {
		m.repeatCount++
	} else {
		m.lastActionKey = key
		m.repeatCount = 1
	}

	m.recentKeys = append(m.recentKeys, key)
	if len(m.recentKeys) > m.maxRecent {
		m.recentKeys = m.recentKeys[len(m.recentKeys)-m.maxRecent:]
	}

	if len(m.recentKeys) >= m.patternLen {
		m.patternCounts[strings.Join(m.recentKeys[len(m.recentKeys)-m.patternLen:], "->")]++
	}
}

// ShouldBlock returns a note for the model when action would continue a loop.
func (m *StepMemory) ShouldBlock(url string, action llm.Action) (bool, string) {
	// Scrolling and finishing never loop in a harmful way.
	if action.Type == llm.ActionScroll || action.Type == llm.ActionFinish {
		return false, ""
	}

	key := actionKey(url, action)

	if key == m.lastActionKey && m.repeatCount >= m.loopThreshold {
		return true, fmt.Sprintf(
			"SYSTEM NOTE: The same action (%s) has already been executed %d times in a row. "+
				"Do NOT repeat it again. Choose a different action or finish if the goal is already achieved.",
			key, m.repeatCount,
		)
	}

	if len(m.recentKeys) >= m.patternLen-1 {
		seq := append([]string{}, m.recentKeys[len(m.recentKeys)-(m.patternLen-1):]...)
		seq = append(seq, key)
		pattern := strings.Join(seq, "->")
		// A pair of identical keys is the repeat case above.
		if seq[0] != key && m.patternCounts[pattern] >= 1 {
			return true, fmt.Sprintf(
				"SYSTEM NOTE: The sequence of %d actions (%s) has already occurred before. "+
					"Do NOT repeat this pattern. Try a different action (for example, moving to the next stage of the flow or finishing).",
				m.patternLen, pattern,
			)
		}
	}

	return false, ""
}

func (m *StepMemory) AddSystemNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	m.appendLine(note)
}

func (m *StepMemory) appendLine(line string) {
	m.fullLines = append(m.fullLines, line)
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

func (m *StepMemory) HistoryLines() []string {
	if len(m.lines) == 0 {
		return nil
	}
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *StepMemory) HistoryString() string {
	return strings.Join(m.lines, "\n")
}

// FullHistory is every line ever recorded, including those rolled out of HistoryLines.
func (m *StepMemory) FullHistory() []string {
	if len(m.fullLines) == 0 {
		return nil
	}
	out := make([]string, len(m.fullLines))
	copy(out, m.fullLines)
	return out
}

func (m *StepMemory) MarkLoopTriggered() {
	m.loopTriggered = true
}

func (m *StepMemory) LoopTriggered() bool {
	return m.loopTriggered
}
