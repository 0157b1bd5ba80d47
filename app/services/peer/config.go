package peer

// Config is a peer's runtime configuration, loaded by cmd/peer via
// github.com/ardanlabs/conf/v3.
type Config struct {
	Web struct {
		APIListenAddr   string `conf:"default:127.0.0.1:8080"`
		ShutdownTimeout string `conf:"default:5s"`
	}
	Mesh struct {
		ListenAddr string `conf:"default:0.0.0.0:54321"`
	}
	Self struct {
		Addr string `conf:"default:"`
	}
	Tracker struct {
		Addr string `conf:"default:127.0.0.1:65431"`
	}
	Songs struct {
		Dir string `conf:"default:./songs"`
	}
	Synthetic struct {
		Enabled bool `conf:"default:false"`
	}
	Persist struct {
		LogDir string `conf:"default:./log"`
	}
}
