package feed

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "heading with trailing text",
			body: "[h1]Update[/h1] Fixed bugs",
			want: "<h1>Update</h1> Fixed bugs",
		},
		{
			name: "uppercase tags",
			body: "[H2]Notes[/H2]",
			want: "<h2>Notes</h2>",
		},
		{
			name: "image",
			body: "before [img]https://cdn.example.com/a.png[/img] after",
			want: `before <img src="https://cdn.example.com/a.png"> after`,
		},
		{
			name: "link with argument",
			body: "[url=https://example.com/patch]patch notes[/url]",
			want: `<a href="https://example.com/patch">patch notes</a>`,
		},
		{
			name: "bare link",
			body: "[url]https://example.com[/url]",
			want: `<a href="https://example.com">https://example.com</a>`,
		},
		{
			name: "inline styles",
			body: "[b]bold[/b] and [i]italic[/i] and [code]x < y[/code]",
			want: "<b>bold</b> and <i>italic</i> and <code>x &lt; y</code>",
		},
		{
			name: "text between tags is escaped",
			body: "[h1]A & B[/h1]",
			want: "<h1>A &amp; B</h1>",
		},
		{
			name: "no markers escapes the whole body",
			body: `<p>already html & such</p>`,
			want: "&lt;p&gt;already html &amp; such&lt;/p&gt;",
		},
		{
			name: "plain text unchanged",
			body: "just words",
			want: "just words",
		},
		{
			name: "unterminated image consumes the rest",
			body: "[img]https://cdn.example.com/a.png",
			want: `<img src="https://cdn.example.com/a.png">`,
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.body); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestFirstImage(t *testing.T) {
	doc := `<h1>Update</h1><img src="https://cdn.example.com/banner.jpg"><img src="https://cdn.example.com/second.jpg">`
	if got := FirstImage(doc); got != "https://cdn.example.com/banner.jpg" {
		t.Fatalf("FirstImage = %q", got)
	}
	if got := FirstImage("<p>no images here</p>"); got != "" {
		t.Fatalf("FirstImage on imageless doc = %q, want empty", got)
	}
}
