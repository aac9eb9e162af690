package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nupi.audio.v1.AudioAnalysisService"

// AudioAnalysisServer is the gRPC surface. Requests name files on the
// server's filesystem; responses carry the same JSON reports as the HTTP API.
type AudioAnalysisServer interface {
	DetectSounds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SpeechDuration(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzePacing(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AudioAnalysisServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AudioAnalysisServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AudioAnalysisServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes AudioAnalysisService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AudioAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DetectSounds", Handler: unaryHandler("DetectSounds", AudioAnalysisServer.DetectSounds)},
		{MethodName: "SpeechDuration", Handler: unaryHandler("SpeechDuration", AudioAnalysisServer.SpeechDuration)},
		{MethodName: "AnalyzePacing", Handler: unaryHandler("AnalyzePacing", AudioAnalysisServer.AnalyzePacing)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nupi/audio/v1/audio_analysis.proto",
}

// RegisterAudioAnalysisServer registers srv on s.
func RegisterAudioAnalysisServer(s grpc.ServiceRegistrar, srv AudioAnalysisServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GRPCService implements AudioAnalysisServer on top of an Analyzer.
type GRPCService struct {
	analyzer Analyzer
	cfg      config.Config
	log      *slog.Logger
}

// NewGRPCService returns a GRPCService using cfg for parameter defaults.
func NewGRPCService(analyzer Analyzer, cfg config.Config, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{analyzer: analyzer, cfg: cfg, log: logger.With("component", "grpc")}
}

func (s *GRPCService) DetectSounds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requiredString(req, "path")
	if err != nil {
		return nil, err
	}
	params, err := sedParams(s.cfg.SED, structLookup(req))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	filename := stringField(req, "filename")
	if filename == "" {
		filename = filepath.Base(path)
	}
	report, err := s.analyzer.DetectSounds(ctx, path, filename, params)
	if err != nil {
		s.log.Error("error processing audio", "path", path, "error", err)
		return nil, statusFromError(err, "Audio processing failed")
	}
	return toStruct(report)
}

func (s *GRPCService) SpeechDuration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requiredString(req, "path")
	if err != nil {
		return nil, err
	}
	params, err := vadParams(s.cfg.VAD, structLookup(req))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(s.analyzer.SpeechDuration(ctx, path, params))
}

func (s *GRPCService) AnalyzePacing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refPath, err := requiredString(req, "reference_path")
	if err != nil {
		return nil, err
	}
	userPath, err := requiredString(req, "user_path")
	if err != nil {
		return nil, err
	}
	params, err := vadParams(s.cfg.VAD, structLookup(req))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(s.analyzer.AnalyzePacing(ctx, refPath, userPath, params))
}

// LazyService returns Unavailable until SetServer is called, so the listener
// can be bound before models and engines are resolved.
type LazyService struct {
	server atomic.Pointer[AudioAnalysisServer]
}

// SetServer activates srv.
func (l *LazyService) SetServer(srv AudioAnalysisServer) {
	l.server.Store(&srv)
}

func (l *LazyService) get() (AudioAnalysisServer, error) {
	srv := l.server.Load()
	if srv == nil {
		return nil, status.Error(codes.Unavailable, "audio analysis service is initializing, please retry in a moment")
	}
	return *srv, nil
}

func (l *LazyService) DetectSounds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	srv, err := l.get()
	if err != nil {
		return nil, err
	}
	return srv.DetectSounds(ctx, req)
}

func (l *LazyService) SpeechDuration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	srv, err := l.get()
	if err != nil {
		return nil, err
	}
	return srv.SpeechDuration(ctx, req)
}

func (l *LazyService) AnalyzePacing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	srv, err := l.get()
	if err != nil {
		return nil, err
	}
	return srv.AnalyzePacing(ctx, req)
}

// Client calls AudioAnalysisService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DetectSounds(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DetectSounds", req, opts...)
}

func (c *Client) SpeechDuration(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SpeechDuration", req, opts...)
}

func (c *Client) AnalyzePacing(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AnalyzePacing", req, opts...)
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func requiredString(req *structpb.Struct, name string) (string, error) {
	s := stringField(req, name)
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return s, nil
}

// structLookup exposes numeric and string Struct fields as raw parameters.
func structLookup(req *structpb.Struct) lookupFunc {
	return func(name string) (string, bool) {
		v, ok := req.GetFields()[name]
		if !ok {
			return "", false
		}
		switch k := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			return fmt.Sprint(k.NumberValue), true
		case *structpb.Value_StringValue:
			return k.StringValue, true
		default:
			return "", false
		}
	}
}

// toStruct converts a JSON-tagged report into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func statusFromError(err error, prefix string) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "%s: %v", prefix, err)
	}
}
