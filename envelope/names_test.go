package envelope

import "testing"

func TestSplitName(t *testing.T) {
	cases := map[string]QName{
		"SOAP-ENV:Body": {Prefix: "SOAP-ENV", Local: "Body"},
		"Body":          {Local: "Body"},
		"a:b:c":         {Prefix: "a", Local: "b:c"},
	}
	for input, expected := range cases {
		if got := SplitName(input); got != expected {
			t.Fatalf("split %q: expected %#v, got %#v", input, expected, got)
		}
		if got := SplitName(input); got != expected {
			t.Fatalf("cached split %q: expected %#v, got %#v", input, expected, got)
		}
	}
	if got := SplitName("m:Ping").String(); got != "m:Ping" {
		t.Fatalf("expected round trip of qualified name, got %q", got)
	}
}

func TestValidQName(t *testing.T) {
	valid := []string{"Body", "m:Ping", "_x", "a-b.c1", "ns1:Get_Status"}
	for _, name := range valid {
		if !validQName(SplitName(name)) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	invalid := []string{"", "1abc", "a b", "x:", "a:b:c", "<x>"}
	for _, name := range invalid {
		if validQName(SplitName(name)) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}
