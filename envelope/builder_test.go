package envelope

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuild_WrapsActionInEnvelope(t *testing.T) {
	out, err := Build("GetStatus", map[string]any{"jobId": "42"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc := string(out)
	for _, fragment := range []string{
		`<SOAP-ENV:Envelope`,
		`xmlns:xsd="` + NamespaceXSD + `"`,
		`xmlns:xsi="` + NamespaceXSI + `"`,
		`xmlns:SOAP-ENC="` + NamespaceEncoding + `"`,
		`SOAP-ENV:encodingStyle="` + NamespaceEncoding + `"`,
		`xmlns:SOAP-ENV="` + NamespaceEnvelope + `"`,
		`<SOAP-ENV:Body>`,
		`<GetStatus><jobId>42</jobId></GetStatus>`,
		`</SOAP-ENV:Body>`,
	} {
		if !strings.Contains(doc, fragment) {
			t.Fatalf("expected %q in envelope:\n%s", fragment, doc)
		}
	}
	if !strings.HasSuffix(doc, "</SOAP-ENV:Envelope>") {
		t.Fatalf("expected closing envelope tag")
	}
}

func TestBuild_SerializesNestedValues(t *testing.T) {
	out, err := Build("m:Submit", map[string]any{
		"order": map[string]any{
			"lines": []any{
				map[string]any{"sku": "A1", "qty": 2},
				map[string]any{"sku": "B2", "qty": 1.5},
			},
			"rush": true,
			"note": "a < b & c",
		},
		"empty": nil,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expected := `<m:Submit><empty></empty><order>` +
		`<lines><qty>2</qty><sku>A1</sku></lines>` +
		`<lines><qty>1.5</qty><sku>B2</sku></lines>` +
		`<note>a &lt; b &amp; c</note><rush>true</rush>` +
		`</order></m:Submit>`
	if !strings.Contains(string(out), expected) {
		t.Fatalf("unexpected body:\n%s", out)
	}
}

func TestBuild_ParamsKeepOrder(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out, err := Build("Schedule", Params{
		{Name: "zeta", Value: "z"},
		{Name: "alpha", Value: when},
		{Name: "blob", Value: []byte("hi")},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	expected := `<Schedule><zeta>z</zeta><alpha>2026-01-02T03:04:05Z</alpha><blob>aGk=</blob></Schedule>`
	if !strings.Contains(string(out), expected) {
		t.Fatalf("unexpected body:\n%s", out)
	}
}

func TestBuild_NodeTextKeyBecomesContent(t *testing.T) {
	out, err := Build("Echo", Node{"status": Node{TextKey: "done"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(string(out), `<Echo><status>done</status></Echo>`) {
		t.Fatalf("unexpected body:\n%s", out)
	}
}

func TestBuild_RejectsUnserializableArguments(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	cases := map[string]struct {
		action string
		args   any
	}{
		"invalid action":   {action: "1bad", args: nil},
		"invalid key":      {action: "Ok", args: map[string]any{"has space": 1}},
		"function value":   {action: "Ok", args: map[string]any{"fn": func() {}}},
		"channel value":    {action: "Ok", args: map[string]any{"ch": make(chan int)}},
		"struct value":     {action: "Ok", args: map[string]any{"s": struct{ A int }{A: 1}}},
		"non string keys":  {action: "Ok", args: map[int]string{1: "a"}},
		"cyclic structure": {action: "Ok", args: cyclic},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(tc.action, tc.args)
			if err == nil {
				t.Fatalf("expected encode error")
			}
			var encodeErr *EncodeError
			if !errors.As(err, &encodeErr) {
				t.Fatalf("expected *EncodeError, got %T", err)
			}
		})
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	args := map[string]any{
		"account": "acc-1",
		"limit":   25,
		"filter":  map[string]any{"state": "open", "owner": "ops"},
	}
	out, err := Build("ListJobs", args)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	node, err := Parse(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	request, ok := node.Child("ListJobs")
	if !ok {
		t.Fatalf("expected action node, got %#v", node)
	}
	if len(request) != len(args) {
		t.Fatalf("expected %d keys, got %#v", len(args), request)
	}
	if request.TextAt("account") != "acc-1" || request.TextAt("limit") != "25" {
		t.Fatalf("unexpected scalar values: %#v", request)
	}
	if request.TextAt("filter", "state") != "open" || request.TextAt("filter", "owner") != "ops" {
		t.Fatalf("unexpected nested values: %#v", request)
	}
}

func TestBuildParseRoundTrip_KeepsWhitespaceScalars(t *testing.T) {
	out, err := Build("Echo", map[string]any{"pad": " ", "tab": "\t", "word": " a "})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	node, err := Parse(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	request, ok := node.Child("Echo")
	if !ok {
		t.Fatalf("expected action node, got %#v", node)
	}
	for key, want := range map[string]string{"pad": " ", "tab": "\t", "word": " a "} {
		child, _ := request.Child(key)
		got, ok := child.Text()
		if !ok || got != want {
			t.Fatalf("expected %s=%q after round trip, got %#v", key, want, child)
		}
	}
	if _, ok := request.Text(); ok {
		t.Fatalf("expected indentation around children to be dropped, got %#v", request)
	}
}
