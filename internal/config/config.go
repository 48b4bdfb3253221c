package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string // empty disables the auth middleware

	Game        string
	CatalogPath string // optional override of the embedded catalog

	DetectorBackend     string // "dnn" or "onnx"
	ModelPath           string
	ModelConfigPath     string // only used by the dnn backend
	LabelsPath          string
	ONNXLibraryPath     string
	ONNXInputSize       int
	ConfidenceThreshold float64
	NMSThreshold        float64

	CameraIndexes   []int // opened in order, first success wins
	CameraWidth     int
	CameraHeight    int
	FrameIntervalMs int
	ProcessEveryNth int    // keep every Nth frame as the last frame
	CameraUDPAddr   string // when set, frames arrive as UDP JPEG datagrams instead
	PreviewWorkers  int

	PreviewX, PreviewY          int
	PreviewWidth, PreviewHeight int
	PreviewFit                  bool // letterbox instead of stretch
	GuideWidthRatio             float64
	GuideHeightRatio            float64
	CropPadding                 int

	Remover             string // "colorkey" or "rembg"
	RembgURL            string
	BackgroundTolerance float64
	FeatherRadius       float64

	OutputDirectory string
	MaxOutputSizeMB int64
	JanitorInterval int // seconds
	DatabasePath    string
	RestoreCaptures bool
	LogDirectory    string

	GeminiAPIKey    string
	GeminiModel     string
	VoicevoxURL     string
	VoicevoxSpeaker int
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("PASSWORD", ""),

		Game:        getEnv("GAME", "town"),
		CatalogPath: getEnv("CATALOG_PATH", ""),

		DetectorBackend:     getEnv("DETECTOR_BACKEND", "onnx"),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "blocks.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		LabelsPath:          getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.txt")),
		ONNXLibraryPath:     getEnv("ONNX_LIBRARY_PATH", ""),
		ONNXInputSize:       getEnvAsInt("ONNX_INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.3),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),

		CameraIndexes:   getEnvAsInts("CAMERA_INDEXES", []int{1, 0}),
		CameraWidth:     getEnvAsInt("CAMERA_WIDTH", 0),
		CameraHeight:    getEnvAsInt("CAMERA_HEIGHT", 0),
		FrameIntervalMs: getEnvAsInt("FRAME_INTERVAL_MS", 30),
		ProcessEveryNth: getEnvAsInt("PROCESS_EVERY_NTH", 3),
		CameraUDPAddr:   getEnv("CAMERA_UDP_ADDR", ""),
		PreviewWorkers:  getEnvAsInt("PREVIEW_WORKERS", 2),

		PreviewX:         getEnvAsInt("PREVIEW_X", 400),
		PreviewY:         getEnvAsInt("PREVIEW_Y", 50),
		PreviewWidth:     getEnvAsInt("PREVIEW_WIDTH", 300),
		PreviewHeight:    getEnvAsInt("PREVIEW_HEIGHT", 300),
		PreviewFit:       getEnvAsBool("PREVIEW_FIT", false),
		GuideWidthRatio:  getEnvAsFloat("GUIDE_WIDTH_RATIO", 0.85),
		GuideHeightRatio: getEnvAsFloat("GUIDE_HEIGHT_RATIO", 0.70),
		CropPadding:      getEnvAsInt("CROP_PADDING", 10),

		Remover:             getEnv("REMOVER", "colorkey"),
		RembgURL:            getEnv("REMBG_URL", "http://localhost:7000"),
		BackgroundTolerance: getEnvAsFloat("BACKGROUND_TOLERANCE", 0.12),
		FeatherRadius:       getEnvAsFloat("FEATHER_RADIUS", 1.5),

		OutputDirectory: getEnv("OUTPUT_DIR", filepath.Join(".", "output_images")),
		MaxOutputSizeMB: getEnvAsInt64("MAX_OUTPUT_SIZE_MB", 512),
		JanitorInterval: getEnvAsInt("JANITOR_INTERVAL", 60),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "blockcam.db")),
		RestoreCaptures: getEnvAsBool("RESTORE_CAPTURES", false),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		VoicevoxURL:     getEnv("VOICEVOX_URL", "http://localhost:50021"),
		VoicevoxSpeaker: getEnvAsInt("VOICEVOX_SPEAKER", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsInts parses a comma separated list such as "1,0".
// Any malformed entry makes the whole value fall back to the default.
func getEnvAsInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
