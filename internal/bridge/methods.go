package bridge

import (
	"encoding/json"
	"strings"

	"github.com/runanywhere/nativeaudio/internal/service"
)

// SuccessResult acknowledges an operation without a payload.
type SuccessResult struct {
	Success bool `json:"success"`
}

type LevelResult struct {
	Level float64 `json:"level"`
}

type PlayResult struct {
	Success  bool    `json:"success"`
	Duration float64 `json:"duration"`
}

type RecordingsResult struct {
	Recordings []service.RecordingInfo `json:"recordings"`
}

// PlayArgs are the arguments of playAudio.
type PlayArgs struct {
	URI string `json:"uri"`
}

var okResult = SuccessResult{Success: true}

func (b *Bridge) buildMethods() map[string]method {
	svc := b.svc
	return map[string]method{
		"startRecording": {run: func(json.RawMessage) (any, error) {
			return svc.StartRecording()
		}},
		"stopRecording": {run: func(json.RawMessage) (any, error) {
			return svc.StopRecording()
		}},
		"cancelRecording": {run: func(json.RawMessage) (any, error) {
			if err := svc.CancelRecording(); err != nil {
				return nil, err
			}
			return okResult, nil
		}},
		"getAudioLevel": {inline: true, run: func(json.RawMessage) (any, error) {
			return LevelResult{Level: svc.GetAudioLevel()}, nil
		}},
		"playAudio": {run: func(raw json.RawMessage) (any, error) {
			var args PlayArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if strings.TrimSpace(args.URI) == "" {
				return nil, &Error{Code: CodeInvalidArgs, Message: "playAudio requires a uri"}
			}
			duration, err := svc.PlayAudio(args.URI)
			if err != nil {
				return nil, err
			}
			return PlayResult{Success: true, Duration: duration}, nil
		}},
		"stopPlayback": {run: func(json.RawMessage) (any, error) {
			if err := svc.StopPlayback(); err != nil {
				return nil, err
			}
			return okResult, nil
		}},
		"pausePlayback": {run: func(json.RawMessage) (any, error) {
			if err := svc.PausePlayback(); err != nil {
				return nil, err
			}
			return okResult, nil
		}},
		"resumePlayback": {run: func(json.RawMessage) (any, error) {
			if err := svc.ResumePlayback(); err != nil {
				return nil, err
			}
			return okResult, nil
		}},
		"getPlaybackStatus": {run: func(json.RawMessage) (any, error) {
			return svc.GetPlaybackStatus(), nil
		}},
		"listRecordings": {run: func(json.RawMessage) (any, error) {
			recordings, err := svc.ListRecordings()
			if err != nil {
				return nil, err
			}
			return RecordingsResult{Recordings: recordings}, nil
		}},
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Code: CodeInvalidArgs, Message: "Invalid arguments: " + err.Error(), Err: err}
	}
	return nil
}
