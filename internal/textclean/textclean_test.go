package textclean

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  combustible flota  ", "combustible flota"},
		{"<b>Peaje</b> ruta 2", "Peaje ruta 2"},
		{"<script>alert(1)</script>Viaticos", "Viaticos"},
		{"Perez & Hijos", "Perez & Hijos"},
		{"O'Higgins 123", "O'Higgins 123"},
		{"linea\x07oculta\x1b", "lineaoculta"},
		{"uno\ndos", "uno\ndos"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
