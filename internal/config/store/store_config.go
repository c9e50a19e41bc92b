// Package store configures the recipe store, the vector index and the
// Firebase project behind them.
package store

const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverRedis     = "redis"
	DriverFirestore = "firestore"
)

type StoreConfig struct {
	Driver string `json:"driver" env:"PANTRYCHEF_STORE_DRIVER"`

	// Path is the sqlite database file.
	Path string `json:"path,omitempty" env:"PANTRYCHEF_STORE_PATH"`

	// Addr, Password and DB select the redis server.
	Addr     string `json:"addr,omitempty" env:"PANTRYCHEF_STORE_ADDR,REDIS_ADDR"`
	Password string `json:"password,omitempty" env:"PANTRYCHEF_STORE_PASSWORD"`
	DB       int    `json:"db,omitempty" env:"PANTRYCHEF_STORE_DB"`

	// Collection is the firestore collection.
	Collection string `json:"collection,omitempty" env:"PANTRYCHEF_STORE_COLLECTION"`

	// Seed is an optional JSON file holding an array of recipes that the
	// memory driver starts with.
	Seed string `json:"seed,omitempty" env:"PANTRYCHEF_STORE_SEED"`
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Driver: DriverMemory, Collection: "recipes"}
}

// VectorHostMemory keeps the vector index in process instead of Qdrant.
const VectorHostMemory = "memory"

// VectorConfig configures the Qdrant index. An empty Host disables vector
// search.
type VectorConfig struct {
	Host       string `json:"host,omitempty" env:"QDRANT_HOST"`
	Port       int    `json:"port" env:"QDRANT_PORT"`
	APIKey     string `json:"apiKey,omitempty" env:"QDRANT_API_KEY"`
	Collection string `json:"collection" env:"QDRANT_COLLECTION"`
	Dimension  int    `json:"dimension" env:"QDRANT_DIMENSION"`
	TopK       int    `json:"topK" env:"PANTRYCHEF_TOP_K"`
}

func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Port: 6334, Collection: "recipes", Dimension: 1536, TopK: 10}
}

// Enabled reports whether a vector index is configured.
func (c VectorConfig) Enabled() bool { return c.Host != "" }

// InProcess reports whether the index lives in memory.
func (c VectorConfig) InProcess() bool { return c.Host == VectorHostMemory }

type FirebaseConfig struct {
	ProjectID       string `json:"projectId,omitempty" env:"FIREBASE_PROJECT_ID,GOOGLE_CLOUD_PROJECT"`
	CredentialsFile string `json:"credentialsFile,omitempty" env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// AuthDisabled skips token verification; every caller is anonymous.
	AuthDisabled bool `json:"authDisabled,omitempty" env:"PANTRYCHEF_AUTH_DISABLED"`

	// StaticTokens maps bearer tokens to display names. Used instead of
	// Firebase when no project is configured.
	StaticTokens map[string]string `json:"staticTokens,omitempty"`
}

// Enabled reports whether a Firebase project is configured.
func (c FirebaseConfig) Enabled() bool { return c.ProjectID != "" }

type IndexerConfig struct {
	// Schedule is "@every <duration>" or a five-field cron expression. Empty
	// disables scheduled reindexing.
	Schedule    string `json:"schedule,omitempty" env:"PANTRYCHEF_INDEX_SCHEDULE"`
	TZ          string `json:"tz,omitempty" env:"PANTRYCHEF_INDEX_TZ"`
	Concurrency int    `json:"concurrency" env:"PANTRYCHEF_INDEX_CONCURRENCY"`
}

func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{Concurrency: 4}
}
