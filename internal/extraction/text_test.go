package extraction

import "testing"

func TestIsSupportedText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body []byte
		want bool
	}{
		{
			name: "plain text",
			body: []byte("REPUBLICA DE COLOMBIA\nCedula de ciudadania 1234567890\n"),
			want: true,
		},
		{
			name: "empty",
			body: []byte(""),
			want: false,
		},
		{
			name: "whitespace only",
			body: []byte(" \n\t "),
			want: false,
		},
		{
			name: "invalid utf8",
			body: []byte{0xff, 0xfe, 0xfd},
			want: false,
		},
		{
			name: "pdf header",
			body: []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"),
			want: false,
		},
		{
			name: "png header",
			body: []byte{
				0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
				0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
			},
			want: false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := IsSupportedText(tc.body)
			if got != tc.want {
				t.Fatalf("IsSupportedText() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTextByExtension(t *testing.T) {
	t.Parallel()

	if got := Text("cedula.txt", []byte("  DNI 12345678  ")); got != "DNI 12345678" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := Text("cedula.pdf", []byte("DNI 12345678")); got != "" {
		t.Fatalf("expected no text for pdf, got %q", got)
	}
}
