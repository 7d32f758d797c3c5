package agent

import (
	"log/slog"
	"time"

	"github.com/tbxark/estimagent/dialogue"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/types"
)

const (
	DefaultService           = "roofing"
	DefaultExtractionTimeout = 15 * time.Second
	DefaultHistoryWindow     = 6
	defaultMaxSteps          = 16
)

type Option func(*Engine)

func WithProfiles(profiles ProfileSource) Option {
	return func(e *Engine) {
		e.profiles = profiles
	}
}

func WithDefaultService(name string) Option {
	return func(e *Engine) {
		e.defaultService = name
	}
}

func WithExtractor(extractor extract.Extractor) Option {
	return func(e *Engine) {
		e.extractor = extractor
	}
}

func WithImageAnalyzer(analyzer extract.ImageAnalyzer) Option {
	return func(e *Engine) {
		e.imageAnalyzer = analyzer
	}
}

func WithSelector(selector dialogue.Selector) Option {
	return func(e *Engine) {
		e.selector = selector
	}
}

// WithExtractionTimeout bounds each extraction and image analysis call.
func WithExtractionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.extractionTimeout = d
	}
}

// WithHistoryWindow sets how many recent messages collaborators see.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) {
		e.trimmer = LastNTrimmer{N: n}
	}
}

func WithTrimmer(trimmer Trimmer) Option {
	return func(e *Engine) {
		e.trimmer = trimmer
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func defaultEngine() *Engine {
	return &Engine{
		profiles:          StaticProfiles{DefaultService: types.DefaultProfile()},
		defaultService:    DefaultService,
		extractor:         extract.NewLocalExtractor(),
		imageAnalyzer:     extract.NewDescriptionImageAnalyzer(),
		selector:          dialogue.NewLocalSelector(nil),
		trimmer:           LastNTrimmer{N: DefaultHistoryWindow},
		extractionTimeout: DefaultExtractionTimeout,
		recorder:          nopRecorder{},
		logger:            slog.Default(),
		maxSteps:          defaultMaxSteps,
	}
}
