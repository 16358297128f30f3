package editor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"lukechampine.com/blake3"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/program"
)

func sampleBytes(t *testing.T) []byte {
	t.Helper()
	p := program.New()
	ns := program.Namespace{Kind: abc.NamespaceKindPackage, Name: program.Str("")}
	m := p.AddMethod(&program.Method{Body: &program.MethodBody{
		MaxStack:   1,
		LocalCount: 1,
		Instructions: []program.Instruction{
			{Opcode: abc.OpGetLocal, Args: []program.Arg{program.UIntLit(0)}},
			{Opcode: abc.OpPushScope},
			{Opcode: abc.OpReturnVoid},
		},
	}})
	p.Scripts = []*program.Script{{SInit: m, Traits: []program.Trait{{
		Name:    &program.QName{NS: ns, Name: program.Str("answer")},
		Payload: &program.SlotTrait{SlotID: 1, Value: program.IntValue(42)},
	}}}}
	f, err := program.ToABC(p)
	if err != nil {
		t.Fatalf("ToABC: %v", err)
	}
	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func waitResult(t *testing.T, d *Document) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	r, ok := d.Poll()
	if !ok {
		t.Fatal("no result after Wait")
	}
	return r
}

func TestSyncRoundTrip(t *testing.T) {
	data := sampleBytes(t)
	d := Open(data)

	p, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(p.Scripts) != 1 || d.Program() != p {
		t.Fatalf("Decode stored %v", d.Program())
	}

	out, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip changed the bytes:\n%x\n%x", data, out)
	}
	if _, ok := d.Poll(); ok {
		t.Error("synchronous operations must not leave a pollable result")
	}
}

func TestSugarLocals(t *testing.T) {
	d := Open(sampleBytes(t), WithSugarLocals(true))
	if _, err := d.Decode(); err != nil {
		t.Fatal(err)
	}
	out, err := d.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte{byte(abc.OpGetLocal0), byte(abc.OpPushScope), byte(abc.OpReturnVoid)}) {
		t.Errorf("getlocal 0 not shortened: %x", out)
	}
}

func TestAsyncBusy(t *testing.T) {
	data := sampleBytes(t)
	d := Open(data)
	release := make(chan struct{})
	d.hook = func(JobKind) { <-release }

	id, err := d.DecodeAsync()
	if err != nil {
		t.Fatalf("DecodeAsync: %v", err)
	}
	if _, ok := d.Poll(); ok {
		t.Error("Poll returned a result for a running job")
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"DecodeAsync", func() error { _, err := d.DecodeAsync(); return err }},
		{"EncodeAsync", func() error { _, err := d.EncodeAsync(); return err }},
		{"Decode", func() error { _, err := d.Decode(); return err }},
		{"SetProgram", func() error { return d.SetProgram(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.IsKind(err, errors.KindBusy) {
				t.Errorf("expected busy, got %v", err)
			}
		})
	}

	close(release)
	r := waitResult(t, d)
	if r.ID != id || r.Kind != JobDecode {
		t.Errorf("result = %s %s, want %s decode", r.ID, r.Kind, id)
	}
	if r.Err != nil {
		t.Fatalf("decode failed: %v", r.Err)
	}
	if r.Digest != blake3.Sum256(data) {
		t.Error("digest does not match the input")
	}
	if _, ok := d.Poll(); ok {
		t.Error("result polled twice")
	}

	d.hook = nil
	encID, err := d.EncodeAsync()
	if err != nil {
		t.Fatalf("EncodeAsync after completion: %v", err)
	}
	r = waitResult(t, d)
	if r.ID != encID || r.Err != nil || !bytes.Equal(r.Data, data) {
		t.Errorf("encode result = %+v", r)
	}
	if encID == id {
		t.Error("job IDs repeat")
	}
}

func TestJobFailures(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		d := Open(sampleBytes(t))
		d.hook = func(JobKind) { panic("boom") }
		if _, err := d.DecodeAsync(); err != nil {
			t.Fatal(err)
		}
		r := waitResult(t, d)
		if !errors.IsKind(r.Err, errors.KindInvalidData) {
			t.Errorf("expected a reported failure, got %v", r.Err)
		}
		d.hook = nil
		if _, err := d.Decode(); err != nil {
			t.Errorf("document unusable after a panic: %v", err)
		}
	})

	t.Run("encode before decode", func(t *testing.T) {
		d := Open(sampleBytes(t))
		if _, err := d.Encode(); !errors.IsKind(err, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})

	t.Run("truncated input", func(t *testing.T) {
		data := sampleBytes(t)
		d := Open(data[:len(data)/2])
		if _, err := d.Decode(); !errors.IsKind(err, errors.KindOutOfData) {
			t.Errorf("expected out_of_data, got %v", err)
		}
	})

	t.Run("listing before decode", func(t *testing.T) {
		d := Open(sampleBytes(t))
		if _, err := d.Listing(); !errors.IsKind(err, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})
}

func TestListing(t *testing.T) {
	d := Open(sampleBytes(t), WithIncludeDebug(true))
	if _, err := d.Decode(); err != nil {
		t.Fatal(err)
	}
	files, err := d.Listing()
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if len(files) != 1 || !bytes.Contains([]byte(files[0].Content), []byte("getlocal 0")) {
		t.Errorf("files = %+v", files)
	}
}
