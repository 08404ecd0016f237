package pdf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseOperations(t *testing.T) {
	content := []byte(`q 100 0 0 50 10 20 cm /Im1 Do Q
BT /F1 12 Tf (Hi) Tj ET
q /Fm0 Do Q`)

	ops, err := NewContentStreamParser(content).ParseOperations()
	if err != nil {
		t.Fatalf("ParseOperations failed: %v", err)
	}

	var got []string
	for _, op := range ops {
		got = append(got, op.Operator)
	}
	want := []string{"q", "cm", "Do", "Q", "BT", "Tf", "Tj", "ET", "q", "Do", "Q"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operators mismatch (-want +got):\n%s", diff)
	}

	if len(ops[1].Operands) != 6 {
		t.Errorf("cm operands = %v, expected 6", ops[1].Operands)
	}
	if ops[2].Operands[0] != Name("Im1") {
		t.Errorf("Do operand = %v, expected /Im1", ops[2].Operands[0])
	}
}

func TestParseOperationsInlineImage(t *testing.T) {
	content := []byte("q BI /W 2 /H 1 /CS /G /BPC 8 ID \x01\xff EI Q /Im2 Do")

	ops, err := NewContentStreamParser(content).ParseOperations()
	if err != nil {
		t.Fatalf("ParseOperations failed: %v", err)
	}
	if len(ops) != 4 {
		t.Fatalf("got %d operations, expected 4: %+v", len(ops), ops)
	}
	if ops[1].Operator != "BI" {
		t.Fatalf("second operation = %s, expected BI", ops[1].Operator)
	}
	dict := ops[1].Operands[0].(Dictionary)
	if w, _ := dict.GetInt("W"); w != 2 {
		t.Errorf("inline W = %d, expected 2", w)
	}
	if ops[3].Operator != "Do" || ops[3].Operands[0] != Name("Im2") {
		t.Errorf("last operation = %+v", ops[3])
	}
}

func TestParseOperationsRecovers(t *testing.T) {
	// stray delimiters and garbage bytes must not stop parsing
	content := []byte("q ) @@ > /Im1 Do Q")

	ops, err := NewContentStreamParser(content).ParseOperations()
	if err != nil {
		t.Fatalf("ParseOperations failed: %v", err)
	}
	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	if diff := cmp.Diff([]string{"q", "Do", "Q"}, names); diff != "" {
		t.Errorf("operators mismatch (-want +got):\n%s", diff)
	}
}
