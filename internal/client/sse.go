package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// frameParser buffers raw network chunks and emits the data payload of each
// complete SSE frame. A frame is complete once its blank-line terminator has
// been seen; a chunk ending mid-frame yields nothing until the rest arrives.
type frameParser struct {
	buf []byte
}

// feed appends a chunk and returns every data payload completed by it, in
// arrival order. Comment and non-data lines are ignored.
func (p *frameParser) feed(chunk []byte) [][]byte {
	p.buf = append(p.buf, chunk...)

	var payloads [][]byte
	for {
		frame, rest, ok := splitFrame(p.buf)
		if !ok {
			break
		}
		p.buf = rest
		if data := extractData(frame); len(data) > 0 {
			payloads = append(payloads, data)
		}
	}
	return payloads
}

// splitFrame cuts the buffer at the first frame terminator (blank line),
// tolerating both LF and CRLF line endings.
func splitFrame(buf []byte) (frame, rest []byte, ok bool) {
	iLF := bytes.Index(buf, []byte("\n\n"))
	iCRLF := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case iLF == -1 && iCRLF == -1:
		return nil, buf, false
	case iCRLF == -1 || (iLF != -1 && iLF < iCRLF):
		return buf[:iLF], buf[iLF+2:], true
	default:
		return buf[:iCRLF], buf[iCRLF+4:], true
	}
}

func extractData(frame []byte) []byte {
	var dataLines []string
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, ":") {
			// Keep-alive comment, never data.
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}
	if len(dataLines) == 0 {
		return nil
	}
	return []byte(strings.Join(dataLines, "\n"))
}

type progressFrame struct {
	SessionID string                `json:"session_id"`
	Stage     string                `json:"stage"`
	Progress  *int                  `json:"progress"`
	Message   string                `json:"message"`
	Data      *types.AnalysisResult `json:"data"`
	Error     string                `json:"error"`
}

// ProgressUnknown marks an event whose payload carried no progress value.
const ProgressUnknown = -1

// normalizeProgressEvent translates one raw payload into the canonical event
// shape. This is the single place raw payload shape is interpreted.
func normalizeProgressEvent(payload []byte) (types.ProgressEvent, error) {
	var frame progressFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return types.ProgressEvent{}, err
	}
	event := types.ProgressEvent{
		SessionID: frame.SessionID,
		Stage:     types.SessionStatus(frame.Stage),
		Progress:  ProgressUnknown,
		Message:   frame.Message,
		Result:    frame.Data,
		Err:       frame.Error,
	}
	if frame.Progress != nil {
		event.Progress = *frame.Progress
	}
	return event, nil
}
