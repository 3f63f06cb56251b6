package geometry

import "testing"

func TestRegion_Intersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Region
		want Region
	}{
		{
			name: "contained",
			a:    Region{Left: 0, Top: 0, Width: 100, Height: 100},
			b:    Region{Left: 10, Top: 20, Width: 30, Height: 40},
			want: Region{Left: 10, Top: 20, Width: 30, Height: 40},
		},
		{
			name: "partial overlap",
			a:    Region{Left: 0, Top: 0, Width: 100, Height: 100},
			b:    Region{Left: 80, Top: 90, Width: 50, Height: 50},
			want: Region{Left: 80, Top: 90, Width: 20, Height: 10},
		},
		{
			name: "disjoint",
			a:    Region{Left: 0, Top: 0, Width: 10, Height: 10},
			b:    Region{Left: 20, Top: 20, Width: 5, Height: 5},
			want: Region{Left: 20, Top: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Intersect(tt.b)
			if got != tt.want {
				t.Errorf("Intersect() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestRegion_Offset(t *testing.T) {
	r := Region{Left: 50, Top: 70, Width: 10, Height: 20}
	got := r.Offset(20, 30)
	want := Region{Left: 30, Top: 40, Width: 10, Height: 20}
	if got != want {
		t.Errorf("Offset() = %v; want %v", got, want)
	}
}

func TestNewRegion(t *testing.T) {
	r := NewRegion(Point{X: 3, Y: 4}, Size{Width: 500, Height: 120})
	if r.Location() != (Point{X: 3, Y: 4}) {
		t.Errorf("Location() = %v; want (3,4)", r.Location())
	}
	if r.Size() != (Size{Width: 500, Height: 120}) {
		t.Errorf("Size() = %v; want 500x120", r.Size())
	}
	if r.IsEmpty() {
		t.Error("IsEmpty() = true; want false")
	}
}
