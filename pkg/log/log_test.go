// Copyright 2026 The kmpu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, format string) (*BasicLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewLogger(&buf, format)
	if err != nil {
		t.Fatalf("NewLogger(%q) failed: %v", format, err)
	}
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(t, FormatText)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Warningf("shown %d", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message emitted at level %v: %q", Info, out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "shown 3") {
		t.Errorf("missing info or warning message: %q", out)
	}

	buf.Reset()
	l.SetLevel(Debug)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug message not emitted at level %v: %q", Debug, buf.String())
	}

	buf.Reset()
	l.SetLevel(Warning)
	l.Infof("dropped")
	if buf.Len() != 0 {
		t.Errorf("info message emitted at level %v: %q", Warning, buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	l, buf := newTestLogger(t, FormatJSON)
	l.Infof("region %d granted", 4)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, buf.String())
	}
	if got, want := entry["msg"], "region 4 granted"; got != want {
		t.Errorf("msg got %v, want %v", got, want)
	}
	if got, want := entry["level"], "info"; got != want {
		t.Errorf("level got %v, want %v", got, want)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, "xml"); err == nil {
		t.Errorf("NewLogger accepted an unknown format")
	}
}

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	for _, lv := range []Level{Warning, Info, Debug} {
		bs, err := lv.MarshalText()
		if err != nil {
			t.Errorf("error marshaling %v: %v", lv, err)
		}
		var lv2 Level
		if err := lv2.UnmarshalText(bs); err != nil {
			t.Errorf("error unmarshaling %s: %v", bs, err)
		}
		if lv != lv2 {
			t.Errorf("marshal/unmarshal level got %v wanted %v", lv2, lv)
		}
	}
}

func TestUnmarshalFromInt(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Level
	}{
		{"0", Warning},
		{"1", Info},
		{"2", Debug},
	} {
		var lv Level
		if err := lv.UnmarshalText([]byte(tc.in)); err != nil {
			t.Errorf("error unmarshaling %q: %v", tc.in, err)
		}
		if lv != tc.want {
			t.Errorf("unmarshal %q got %v want %v", tc.in, lv, tc.want)
		}
	}
	var lv Level
	if err := lv.UnmarshalText([]byte("verbose")); err == nil {
		t.Errorf("unmarshal of unknown level succeeded: %v", lv)
	}
}

func TestRateLimited(t *testing.T) {
	l, buf := newTestLogger(t, FormatText)
	rl := RateLimitedLogger(l, time.Hour)

	rl.Warningf("first")
	rl.Warningf("second")
	rl.Warningf("third")
	out := buf.String()
	if !strings.Contains(out, "first") {
		t.Errorf("first message dropped: %q", out)
	}
	if strings.Contains(out, "second") || strings.Contains(out, "third") {
		t.Errorf("messages over the limit emitted: %q", out)
	}
	if !rl.IsLogging(Warning) || rl.IsLogging(Debug) {
		t.Errorf("IsLogging does not follow the underlying logger")
	}
}

func TestSetTargetKeepsLevel(t *testing.T) {
	old := Log()
	prev := Level(old.level.Load())
	defer func() {
		old.SetLevel(prev)
		log.Store(old)
	}()

	SetLevel(Debug)
	var buf bytes.Buffer
	if err := SetTarget(&buf, FormatText); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	Debugf("configured slot %d", 3)
	if !strings.Contains(buf.String(), "configured slot 3") {
		t.Errorf("global debug message not emitted: %q", buf.String())
	}
	if !IsLogging(Debug) {
		t.Errorf("SetTarget reset the level")
	}
}
