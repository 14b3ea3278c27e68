package logging

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

// assertLogMatches will fuzzy match log lines. Notably, this checks the time format, but ignores
// the exact time. And it expects a match on the filename, but the exact line number can be wrong.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	// Use the length of the first string as a weak verification of checking that the result looks like a date.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	// Level and logger name.
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, _ := strings.Cut(expectedParts[3], ":")
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[4:], test.ShouldResemble, expectedParts[4:])
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"motor", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	motor	logging/impl_test.go:44	impl Info log`)

	logger.Infof("setpoint %d", 42)
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	motor	logging/impl_test.go:48	setpoint 42`)

	logger.Infow("tick", "current", 12)
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	motor	logging/impl_test.go:52	tick	{"current":12}`)

	logger.Warnw("unpaired", "key")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	WARN	motor	logging/impl_test.go:56	unpaired	{"key":"unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"", NewAtomicLevelAt(WARN), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.CDebugf(EnableDebugMode(context.Background(), ""), "kept %s", "anyway")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "kept anyway")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("now visible")
	test.That(t, notStdout.String(), test.ShouldContainSubstring, "now visible")

	for _, tc := range []struct {
		in    string
		level Level
		err   bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"Warning", WARN, false},
		{"error", ERROR, false},
		{"loud", DEBUG, true},
	} {
		level, err := LevelFromString(tc.in)
		if tc.err {
			test.That(t, err, test.ShouldNotBeNil)
			continue
		}
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.level)
	}
}

func TestSubloggerNames(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	control := logger.Sublogger("control")
	control.Sublogger("pid").Infow("step", "output", 255)

	entries := observed.All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "control.pid")
	test.That(t, entries[0].ContextMap()["output"], test.ShouldEqual, int64(255))
}

func TestDebugTag(t *testing.T) {
	ctx := context.Background()
	test.That(t, IsDebugMode(ctx), test.ShouldBeFalse)
	test.That(t, DebugTag(EnableDebugMode(ctx, "tick-42")), test.ShouldEqual, "tick-42")
	test.That(t, DebugTag(EnableDebugMode(ctx, "")), test.ShouldHaveLength, 6)
}
