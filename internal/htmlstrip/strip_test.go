package htmlstrip

import "testing"

func TestText_PlainParagraph(t *testing.T) {
	got := TextFromString("<p>Hello, world!</p>")
	if got != "Hello, world!" {
		t.Errorf("got %q, want %q", got, "Hello, world!")
	}
}

func TestText_NestedTags(t *testing.T) {
	got := TextFromString("<div><p>Hello <b>bold</b> text</p></div>")
	if got != "Hello bold text" {
		t.Errorf("got %q, want %q", got, "Hello bold text")
	}
}

func TestText_SkipScript(t *testing.T) {
	got := TextFromString("<p>Before</p><script>var x = 1;</script><p>After</p>")
	if got != "Before After" {
		t.Errorf("got %q, want %q", got, "Before After")
	}
}

func TestText_SkipStyle(t *testing.T) {
	got := TextFromString("<p>Before</p><style>.foo { color: red; }</style><p>After</p>")
	if got != "Before After" {
		t.Errorf("got %q, want %q", got, "Before After")
	}
}

func TestText_CollapseWhitespace(t *testing.T) {
	got := TextFromString("<p>  Hello   world  </p>")
	if got != "Hello world" {
		t.Errorf("got %q, want %q", got, "Hello world")
	}
}

func TestText_LineBreaks(t *testing.T) {
	got := TextFromString("Line one<br>Line two<br/>Line three")
	if got != "Line one Line two Line three" {
		t.Errorf("got %q, want %q", got, "Line one Line two Line three")
	}
}

func TestText_TableCells(t *testing.T) {
	got := TextFromString("<table><tr><td>a</td><td>b</td></tr></table>")
	if got != "a b" {
		t.Errorf("got %q, want %q", got, "a b")
	}
}

func TestText_Entities(t *testing.T) {
	got := TextFromString("<p>Hello &amp; goodbye &lt;world&gt;</p>")
	if got != "Hello & goodbye <world>" {
		t.Errorf("got %q, want %q", got, "Hello & goodbye <world>")
	}
}

func TestText_BareText(t *testing.T) {
	got := TextFromString("just words, no markup")
	if got != "just words, no markup" {
		t.Errorf("got %q, want %q", got, "just words, no markup")
	}
}

func TestText_Empty(t *testing.T) {
	got := TextFromString("")
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestText_Truncated(t *testing.T) {
	// Malformed input still yields whatever text was seen.
	got := TextFromString("<p>partial <b>conte")
	if got != "partial conte" {
		t.Errorf("got %q, want %q", got, "partial conte")
	}
}
