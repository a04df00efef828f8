package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/skintex/internal/cache"
	"github.com/MeKo-Tech/skintex/internal/pipeline"
	"github.com/MeKo-Tech/skintex/internal/server"
	"github.com/MeKo-Tech/skintex/internal/skin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve texture maps over HTTP (baking missing ones on-demand)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("skinpak", "", "Serve prebaked maps from a .skinpak archive instead of baking")

	serveCmd.Flags().Int("cache-capacity", cache.DefaultCapacity, "Max texture sets held in the in-memory cache")
	serveCmd.Flags().Int("max-concurrent-bakes", runtime.NumCPU(), "Max concurrent texture set bakes (default: number of CPUs)")
	serveCmd.Flags().Duration("bake-timeout", 30*time.Second, "Timeout per texture set bake")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served maps")
	serveCmd.Flags().Bool("preload", false, "Warm the preset palette in the background on startup")

	serveCmd.Flags().Int("resolution", 512, "Texture resolution in pixels (square)")
	serveCmd.Flags().String("detail", "medium", "Pore detail level (low, medium, high, ultra)")
	serveCmd.Flags().Bool("sss", true, "Bake subsurface scattering maps")
	serveCmd.Flags().Float64("variation", 1.0, "Base color variation intensity (0-1)")
	serveCmd.Flags().Float64("pore-intensity", 1.0, "Pore depth intensity (0-1)")
	serveCmd.Flags().Float64("imperfection", 1.0, "Roughness imperfection intensity (0-1)")
	serveCmd.Flags().String("noise", "value", "Noise primitive (value, perlin)")
	serveCmd.Flags().Int64("seed", 0, "Offset applied to the built-in noise seeds")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.skinpak", "skinpak")
	mustBind("serve.cache_capacity", "cache-capacity")
	mustBind("serve.max_concurrent_bakes", "max-concurrent-bakes")
	mustBind("serve.bake_timeout", "bake-timeout")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.preload", "preload")

	mustBind("serve.resolution", "resolution")
	mustBind("serve.detail", "detail")
	mustBind("serve.sss", "sss")
	mustBind("serve.variation", "variation")
	mustBind("serve.pore_intensity", "pore-intensity")
	mustBind("serve.imperfection", "imperfection")
	mustBind("serve.noise", "noise")
	mustBind("serve.seed", "seed")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	cacheControl := viper.GetString("serve.cache_control")

	if pakPath := viper.GetString("serve.skinpak"); pakPath != "" {
		return runServePak(addr, pakPath, cacheControl)
	}

	detail, err := skin.ParseDetailLevel(viper.GetString("serve.detail"))
	if err != nil {
		return err
	}
	source, err := noiseFactory(viper.GetString("serve.noise"), viper.GetInt64("serve.seed"))
	if err != nil {
		return err
	}

	params := skin.Params{
		Resolution:    viper.GetInt("serve.resolution"),
		Detail:        detail,
		IncludeSSS:    viper.GetBool("serve.sss"),
		Source:        source,
		Variation:     viper.GetFloat64("serve.variation"),
		PoreIntensity: viper.GetFloat64("serve.pore_intensity"),
		Imperfection:  viper.GetFloat64("serve.imperfection"),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	textureCache := cache.New(viper.GetInt("serve.cache_capacity"), logger)
	builder, err := pipeline.New(textureCache, params, logger)
	if err != nil {
		return err
	}

	od, err := server.NewOnDemandMaps(builder, server.OnDemandMapsConfig{
		CacheControl:       cacheControl,
		MaxConcurrentBakes: viper.GetInt("serve.max_concurrent_bakes"),
		BakeTimeout:        viper.GetDuration("serve.bake_timeout"),
	}, logger)
	if err != nil {
		return err
	}
	defer od.Stop()

	mux := http.NewServeMux()
	mux.Handle("/maps/", withCORS(od.Handler()))
	mux.Handle("/stats", od.StatusHandler())
	mux.Handle("/stats/stream", od.StatusStreamHandler())
	mux.Handle("/preload", od.PreloadHandler())
	mux.Handle("/healthz", od.HealthHandler())
	mux.Handle("/metrics", od.MetricsHandler())

	if viper.GetBool("serve.preload") {
		od.StartPreload()
	}

	logger.Info("texture server listening",
		"addr", addr,
		"resolution", params.Resolution,
		"detail", params.Detail,
		"cache_capacity", textureCache.Capacity(),
		"max_concurrent_bakes", viper.GetInt("serve.max_concurrent_bakes"),
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// runServePak serves maps straight out of an archive, no baking.
func runServePak(addr, pakPath, cacheControl string) error {
	h, err := server.NewPakHandler(server.PakConfig{
		PakPath:      pakPath,
		CacheControl: cacheControl,
	}, logger)
	if err != nil {
		return err
	}
	defer h.Close() //nolint:errcheck

	mux := http.NewServeMux()
	mux.Handle("/maps/", withCORS(h.Handler()))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info("archive server listening", "addr", addr, "skinpak", pakPath)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
