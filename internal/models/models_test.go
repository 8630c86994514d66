package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleResult() *ScanResult {
	r := NewScanResult("/tmp/project")
	r.Add(FileResult{Path: "sub/c.py", Outcome: CountOutcome(0)})
	r.Add(FileResult{Path: "a.py", Outcome: CountOutcome(2)})
	r.Add(FileResult{Path: "b.py", Outcome: FailureOutcome("invalid syntax (b.py, line 1, column 4)")})
	return r
}

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	if o := CountOutcome(-3); o.Count != 0 || o.Failed() {
		t.Fatalf("CountOutcome(-3)=%+v, want zero count", o)
	}
	if o := FailureOutcome("  "); !o.Failed() || o.Failure != unknownFailure {
		t.Fatalf("FailureOutcome(blank)=%+v, want %q", o, unknownFailure)
	}
	if o := CountOutcome(0); o.Failed() {
		t.Fatalf("CountOutcome(0) must not be a failure")
	}
}

func TestScanResultAddKeepsFirst(t *testing.T) {
	t.Parallel()

	r := NewScanResult("root")
	if !r.Add(FileResult{Path: "x.py", Outcome: CountOutcome(1)}) {
		t.Fatalf("first Add returned false")
	}
	if r.Add(FileResult{Path: "x.py", Outcome: CountOutcome(9)}) {
		t.Fatalf("duplicate Add returned true")
	}
	fr, ok := r.Get("x.py")
	if !ok || fr.Outcome.Count != 1 {
		t.Fatalf("Get(x.py)=%+v,%v, want count 1", fr, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("Len=%d, want 1", r.Len())
	}
}

func TestPathsAreSorted(t *testing.T) {
	t.Parallel()

	got := strings.Join(sampleResult().Paths(), ",")
	if got != "a.py,b.py,sub/c.py" {
		t.Fatalf("Paths=%q", got)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := sampleResult().Summarize()
	if s.Files != 3 || s.Functions != 2 || s.Errors != 1 {
		t.Fatalf("Summarize=%+v", s)
	}
}

func TestMarshalJSONFlatOrdered(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a.py":2,"b.py":"invalid syntax (b.py, line 1, column 4)","sub/c.py":0}`
	if string(data) != want {
		t.Fatalf("Marshal=%s, want %s", data, want)
	}
}

func TestMarshalJSONEmpty(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewScanResult("x"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("Marshal(empty)=%s, want {}", data)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	orig := sampleResult()
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded ScanResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !orig.Equal(&decoded) {
		t.Fatalf("round trip mismatch: %v vs %v", orig.Files(), decoded.Files())
	}
}

func TestUnmarshalRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{"a.py": -1}`,
		`{"a.py": 1.5}`,
		`{"a.py": true}`,
		`{"a.py": null}`,
		`{"a.py": [1]}`,
		`[1, 2]`,
		`null`,
	}
	for _, input := range cases {
		var r ScanResult
		if err := json.Unmarshal([]byte(input), &r); err == nil {
			t.Errorf("Unmarshal(%s) expected error", input)
		}
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := sampleResult()
	b := sampleResult()
	b.Root = "elsewhere"
	if !a.Equal(b) {
		t.Fatalf("results with same files should be equal")
	}

	b.files["a.py"] = FileResult{Path: "a.py", Outcome: CountOutcome(3)}
	if a.Equal(b) {
		t.Fatalf("results with different counts should differ")
	}

	var nilResult *ScanResult
	if nilResult.Equal(a) {
		t.Fatalf("nil should not equal non-nil")
	}
}
