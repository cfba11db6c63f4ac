// Package process runs helper programs whose stdin or stdout carries a
// data stream, such as the capture and playback tools behind the
// intercom's command audio device.
//
// Features:
//   - Start a program in its own process group with piped stdin/stdout
//   - Capture stderr into the structured log
//   - Graceful stop: close stdin, SIGTERM the group, SIGKILL after a timeout
//
// Example usage:
//
//	rec, err := process.Start(process.Config{
//	    Name:   "capture",
//	    Binary: "arecord",
//	    Args:   []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", "16000", "-c", "1"},
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer rec.Stop()
//	io.ReadFull(rec, frame)
package process
