package tracker

// Config is the tracker's runtime configuration, loaded by cmd/tracker
// via github.com/ardanlabs/conf/v3.
type Config struct {
	Web struct {
		ListenAddr      string `conf:"default:0.0.0.0:65431"`
		ShutdownTimeout string `conf:"default:5s"`
	}
}
