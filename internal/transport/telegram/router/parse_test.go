package router

import (
	"reflect"
	"testing"
)

func TestTokenizeCommandLine(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"/spis", []string{"/spis"}},
		{"/dodaj zadanie jutro", []string{"/dodaj", "zadanie", "jutro"}},
		{`/cmd a "b c" d`, []string{"/cmd", "a", "b c", "d"}},
		{`/cmd 'x y'`, []string{"/cmd", "x y"}},
		{`/cmd a\ b`, []string{"/cmd", "a b"}},
		{"/cmd a\nb", []string{"/cmd", "a", "b"}},
	}
	for _, tc := range cases {
		if got := tokenizeCommandLine(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("tokenizeCommandLine(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	pos, flags, bools := parseFlags([]string{"a", "--k=v", "--x", "y", "--raw", "-f", "-abc", "b"})
	if !reflect.DeepEqual(pos, []string{"a", "b"}) {
		t.Fatalf("pos = %v", pos)
	}
	if flags["k"] != "v" || flags["x"] != "y" {
		t.Fatalf("flags = %v", flags)
	}
	if !bools["raw"] || !bools["f"] || !bools["a"] || !bools["b"] || !bools["c"] {
		t.Fatalf("bools = %v", bools)
	}
}

func TestRestAfterFields(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"/dodaj zadanie jutro ; mat ; treść", 2, "jutro ; mat ; treść"},
		{"/dodaj ogloszenie jutro ; pierwsza linia\ndruga linia", 2, "jutro ; pierwsza linia\ndruga linia"},
		{"/usun abc", 1, "abc"},
		{"/spis", 1, ""},
		{"  /cmd   x  ", 1, "x"},
	}
	for _, tc := range cases {
		if got := restAfterFields(tc.in, tc.n); got != tc.want {
			t.Fatalf("restAfterFields(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestCommandTree(t *testing.T) {
	root := newRoot()
	root.add(splitRoute("dodaj zadanie"), Command{Route: "dodaj zadanie"})
	root.add(splitRoute("dodaj ogloszenie"), Command{Route: "dodaj ogloszenie"})
	root.add(splitRoute("spis"), Command{Route: "spis"})

	if n := root.find([]string{"dodaj", "zadanie"}); n == nil || n.cmd == nil || n.cmd.Route != "dodaj zadanie" {
		t.Fatalf("find(dodaj zadanie) = %+v", n)
	}
	// Container node: present but carries no command.
	if n := root.find([]string{"dodaj"}); n == nil || n.cmd != nil {
		t.Fatalf("find(dodaj) = %+v", n)
	}
	if n := root.find([]string{"brak"}); n != nil {
		t.Fatalf("find(brak) = %+v, want nil", n)
	}

	dodaj, ok := root.child("dodaj")
	if !ok {
		t.Fatalf("child(dodaj) missing")
	}
	if got := dodaj.childNames(); !reflect.DeepEqual(got, []string{"ogloszenie", "zadanie"}) {
		t.Fatalf("childNames = %v", got)
	}
}

func TestNewReqIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newReqID()
		if id == "" {
			t.Fatalf("empty request id")
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
