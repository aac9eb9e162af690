package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
)

// startTestServer serves svc on localhost:0 and returns a client.
func startTestServer(t *testing.T, svc AudioAnalysisServer) *Client {
	t.Helper()

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	grpcServer := grpc.NewServer()
	RegisterAudioAnalysisServer(grpcServer, svc)
	go grpcServer.Serve(lis)

	conn, err := grpc.NewClient(
		lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		grpcServer.Stop()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		grpcServer.Stop()
	})
	return NewClient(conn)
}

func TestGRPCDetectSounds(t *testing.T) {
	fa := &fakeAnalyzer{}
	client := startTestServer(t, NewGRPCService(fa, config.Default(), nil))

	resp, err := client.DetectSounds(context.Background(), map[string]any{
		"path":      "/srv/audio/scene.wav",
		"threshold": 0.45,
	})
	if err != nil {
		t.Fatalf("DetectSounds: %v", err)
	}
	m := resp.AsMap()
	if m["status"] != "success" || m["total_events"] != float64(1) {
		t.Fatalf("response = %v", m)
	}
	if m["filename"] != "scene.wav" {
		t.Fatalf("filename = %v, want base name of path", m["filename"])
	}
	if sed, _ := fa.params(); sed.Threshold != 0.45 || sed.MinDuration != config.DefaultSEDMinDuration {
		t.Fatalf("params = %+v", sed)
	}
	events := m["events"].([]any)
	if events[0].(map[string]any)["category"] != "music" {
		t.Fatalf("events = %v", events)
	}
}

func TestGRPCDetectSoundsErrors(t *testing.T) {
	fa := &fakeAnalyzer{}
	client := startTestServer(t, NewGRPCService(fa, config.Default(), nil))

	_, err := client.DetectSounds(context.Background(), map[string]any{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing path: code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = client.DetectSounds(context.Background(), map[string]any{"path": "a.wav", "threshold": 3})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad threshold: code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = client.DetectSounds(context.Background(), map[string]any{"path": "a.wav", "min_duration": "Inf"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("infinite min_duration: code = %v, want InvalidArgument", status.Code(err))
	}

	fa.fail(context.DeadlineExceeded)
	_, err = client.DetectSounds(context.Background(), map[string]any{"path": "a.wav"})
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("deadline: code = %v", status.Code(err))
	}
}

func TestGRPCSpeechDurationAndPacing(t *testing.T) {
	fa := &fakeAnalyzer{}
	client := startTestServer(t, NewGRPCService(fa, config.Default(), nil))

	resp, err := client.SpeechDuration(context.Background(), map[string]any{"path": "voice.wav", "threshold": "0.7"})
	if err != nil {
		t.Fatalf("SpeechDuration: %v", err)
	}
	if _, vad := fa.params(); resp.AsMap()["success"] != true || vad.Threshold != 0.7 {
		t.Fatalf("response = %v params = %+v", resp.AsMap(), vad)
	}

	resp, err = client.AnalyzePacing(context.Background(), map[string]any{
		"reference_path": "veo.wav",
		"user_path":      "user.wav",
	})
	if err != nil {
		t.Fatalf("AnalyzePacing: %v", err)
	}
	m := resp.AsMap()
	if m["classification"] != "perfect" || m["veo_segments"] != float64(1) {
		t.Fatalf("response = %v", m)
	}

	_, err = client.AnalyzePacing(context.Background(), map[string]any{"reference_path": "veo.wav"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing user_path: code = %v", status.Code(err))
	}
}

func TestLazyServiceUnavailableUntilSet(t *testing.T) {
	lazy := &LazyService{}
	client := startTestServer(t, lazy)

	_, err := client.SpeechDuration(context.Background(), map[string]any{"path": "voice.wav"})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("code = %v, want Unavailable", status.Code(err))
	}

	lazy.SetServer(NewGRPCService(&fakeAnalyzer{}, config.Default(), nil))
	if _, err := client.SpeechDuration(context.Background(), map[string]any{"path": "voice.wav"}); err != nil {
		t.Fatalf("after SetServer: %v", err)
	}
}
