package ring

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestNew_RejectsNonPositiveCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{"zero", 0},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.capacity); err == nil {
				t.Fatalf("New(%d) = nil error, want error", tt.capacity)
			}
		})
	}
}

func TestFIFO_UsedFreeInvariant(t *testing.T) {
	f, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.Used()+f.Free() != f.Capacity() {
		t.Fatalf("used+free = %d, want %d", f.Used()+f.Free(), f.Capacity())
	}

	n := copy(f.WriteWindow(), []byte("abcde"))
	f.CommitWrite(n)

	if got, want := f.Used()+f.Free(), f.Capacity(); got != want {
		t.Fatalf("used+free = %d, want %d", got, want)
	}
	if f.Used() != 5 || f.Free() != 3 {
		t.Fatalf("used=%d free=%d, want used=5 free=3", f.Used(), f.Free())
	}
}

func TestFIFO_CommitWriteThenCommitReadRoundTrips(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	preUsed, preFree := f.Used(), f.Free()

	n := copy(f.WriteWindow(), []byte("hello world"))
	f.CommitWrite(n)
	f.CommitRead(n)

	if f.Used() != preUsed || f.Free() != preFree {
		t.Fatalf("after commit_write(%d) then commit_read(%d): used=%d free=%d, want used=%d free=%d",
			n, n, f.Used(), f.Free(), preUsed, preFree)
	}
}

func TestFIFO_CommitWriteBeyondFreePanics(t *testing.T) {
	f, _ := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("CommitWrite beyond Free() did not panic")
		}
	}()
	f.CommitWrite(f.Free() + 1)
}

func TestFIFO_CommitReadBeyondUsedPanics(t *testing.T) {
	f, _ := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("CommitRead beyond Used() did not panic")
		}
	}()
	f.CommitRead(1)
}

func TestFIFO_ZeroLengthCommitsDoNotAdvanceCounters(t *testing.T) {
	f, _ := New(4)
	usedBefore, freeBefore := f.Used(), f.Free()

	for i := 0; i < 10; i++ {
		f.CommitWrite(0)
		f.CommitRead(0)
	}

	if f.Used() != usedBefore || f.Free() != freeBefore {
		t.Fatalf("zero-length commits advanced counters: used=%d free=%d", f.Used(), f.Free())
	}
}

func TestFIFO_WriteWindowRespectsWraparound(t *testing.T) {
	f, _ := New(4)

	// Fill and drain a few bytes to move the write index next to the end
	// of the backing array.
	n := copy(f.WriteWindow(), []byte("abc"))
	f.CommitWrite(n)
	f.CommitRead(n)

	// write_index is now 3; only one contiguous byte remains before wrap.
	w := f.WriteWindow()
	if len(w) != 1 {
		t.Fatalf("WriteWindow() len = %d, want 1 (contiguous-to-end)", len(w))
	}
}

func TestFIFO_RoundTripArbitraryStream(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{1, 2, 3, 7, 64, 4096} {
		size := size
		t.Run("", func(t *testing.T) {
			src := make([]byte, 10_000)
			rng.Read(src)

			f, err := New(size)
			if err != nil {
				t.Fatalf("New(%d): %v", size, err)
			}

			var out bytes.Buffer
			pos := 0
			for out.Len() < len(src) {
				if f.Free() > 0 && pos < len(src) {
					w := f.WriteWindow()
					n := copy(w, src[pos:])
					f.CommitWrite(n)
					pos += n
				}
				if f.Used() > 0 {
					r := f.ReadWindow()
					out.Write(r)
					f.CommitRead(len(r))
				}
				if pos >= len(src) && f.Used() == 0 {
					break
				}
			}

			if !bytes.Equal(out.Bytes(), src) {
				t.Fatalf("capacity %d: round trip mismatch, got %d bytes want %d", size, out.Len(), len(src))
			}
		})
	}
}

func TestFIFO_BufferSizeOneMovesOneByteAtATime(t *testing.T) {
	f, err := New(1)
	if err != nil {
		t.Fatalf("New(1): %v", err)
	}
	src := []byte("hello")
	var out []byte
	for i := 0; i < len(src); i++ {
		w := f.WriteWindow()
		if len(w) != 1 {
			t.Fatalf("WriteWindow() len = %d, want 1 at buffer_size=1", len(w))
		}
		w[0] = src[i]
		f.CommitWrite(1)

		r := f.ReadWindow()
		out = append(out, r...)
		f.CommitRead(len(r))
	}
	if string(out) != string(src) {
		t.Fatalf("got %q, want %q", out, src)
	}
}
