// Package editor holds open ABC documents and runs their decode and encode
// operations, either inline or as background jobs.
//
// A Document allows one operation at a time. Starting a second operation
// while a background job is running fails with an errors.KindBusy error; the
// finished result stays available until Poll collects it.
//
//	d := editor.Open(data, editor.WithSugarLocals(true))
//	id, err := d.DecodeAsync()
//	if err != nil {
//		return err
//	}
//	if err := d.Wait(ctx); err != nil {
//		return err
//	}
//	r, _ := d.Poll() // r.ID == id
//
// Panics inside a job are recovered and reported as the job's error.
package editor
