package viz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

type ImageContainer struct {
	name string
	data []byte
}

func (i *ImageContainer) Name() string { return i.name }
func (i *ImageContainer) Data() []byte { return i.data }

type Producer interface {
	Name() string
	GetImage() *ImageContainer
	AddPlotOption(opt PlotOptions)
}

type Server struct {
	images          map[string]map[string]*ImageContainer
	mu              sync.RWMutex
	port            int
	srv             *http.Server
	producerBuckets map[string]map[string]Producer
	updateInterval  time.Duration
	enabled         bool
	lastViewed      map[string]time.Time
	metrics         http.Handler
	status          func() interface{}
}

func NewServer(port int, updateInterval time.Duration) *Server {
	return &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		port:            port,
		lastViewed:      make(map[string]time.Time),
		srv:             &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval:  updateInterval,
		enabled:         true,
	}
}

func (s *Server) Enable(enable bool) {
	s.mu.Lock()
	s.enabled = enable
	s.mu.Unlock()
}

// SetMetricsHandler serves h on /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.mu.Lock()
	s.metrics = h
	s.mu.Unlock()
}

// SetStatus serves the JSON encoding of f() on /status.
func (s *Server) SetStatus(f func() interface{}) {
	s.mu.Lock()
	s.status = f
	s.mu.Unlock()
}

func (s *Server) Register(key string, p Producer) {
	s.mu.Lock()
	bucket, ok := s.producerBuckets[key]
	if !ok {
		bucket = make(map[string]Producer)
		s.producerBuckets[key] = bucket
	}
	bucket[p.Name()] = p
	s.mu.Unlock()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Refresh renders every producer of the buckets viewed within the last second.
func (s *Server) Refresh() {
	s.mu.RLock()
	if !s.enabled {
		s.mu.RUnlock()
		return
	}
	type job struct {
		bucket string
		p      Producer
	}
	var jobs []job
	for bucketName, bucket := range s.producerBuckets {
		if time.Since(s.lastViewed[bucketName]) >= time.Second {
			continue
		}
		for _, p := range bucket {
			jobs = append(jobs, job{bucketName, p})
		}
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(bucket string, p Producer) {
			defer wg.Done()

			img := p.GetImage()
			if img == nil {
				return
			}
			s.mu.Lock()
			mb, ok := s.images[bucket]
			if !ok {
				mb = make(map[string]*ImageContainer)
				s.images[bucket] = mb
			}
			mb[img.name] = img
			s.mu.Unlock()
		}(j.bucket, j.p)
	}
	wg.Wait()
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh()
			}
		}
	}()

	s.srv.Handler = s.Handler()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		keys := s.bucketKeys()
		s.mu.RUnlock()

		if len(keys) == 0 {
			http.Redirect(w, r, "/status", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/view/"+url.PathEscape(keys[0]), http.StatusFound)
	})

	handler.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		status := s.status
		s.mu.RUnlock()
		if status == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	handler.GET("/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		h := s.metrics
		s.mu.RUnlock()
		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ServeHTTP(w, r)
	})

	handler.GET("/view/:bucket", s.viewBucket)

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucketName := params.ByName("bucket")
		imgName := params.ByName("img")

		s.mu.Lock()
		s.lastViewed[bucketName] = time.Now()
		img, ok := s.images[bucketName][imgName]
		s.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Add("Content-Type", "image/png")
		w.Write(img.data)
	})

	return handler
}

func (s *Server) bucketKeys() []string {
	keys := make([]string, 0, len(s.producerBuckets))
	for key := range s.producerBuckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) viewBucket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	bucket := params.ByName("bucket")

	s.mu.Lock()
	itemsForBucket, ok := s.producerBuckets[bucket]
	if ok {
		s.lastViewed[bucket] = time.Now()
	}
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(itemsForBucket))
	for key := range itemsForBucket {
		items = append(items, key)
	}
	sort.Strings(items)

	w.Header().Add("Content-Type", "text/html")
	w.Write([]byte(`<html><head><title>SerialMail</title></head>`))
	w.Write([]byte(fmt.Sprintf(`
		<script type="text/javascript">
			var toggleRefresh = true;
			function toggleOn() {
				toggleRefresh = !toggleRefresh;
			}

			function changeBucket() {
				var val = document.getElementById('bucketSelector').value;
				window.location.href = '/view/' + val;
			}
			window.onload = function() {
				for (var i = 0; i < %d; i++) {
					var img = document.getElementById('graph-' + i);
					setInterval(function(image) {
						if (toggleRefresh) {
							image.src = image.src.split("?")[0] + "?" + new Date().getTime();
						}
					}, %d, img);
				}
			}
		</script>`, len(items), s.updateInterval.Milliseconds())))
	w.Write([]byte(`<body style='background-color: black'>`))

	w.Write([]byte(`<select id="bucketSelector" onchange="changeBucket()">`))
	for _, bucketName := range s.bucketKeys() {
		selected := ""
		if bucketName == bucket {
			selected = " selected"
		}
		w.Write([]byte(fmt.Sprintf(`<option value="%s"%s>%s</option>`, bucketName, selected, bucketName)))
	}
	w.Write([]byte(`</select>`))
	w.Write([]byte(`<button onclick="toggleOn()">Refresh?</button>`))

	w.Write([]byte(`<div style="display: flex; flex-direction: row; flex-wrap: wrap">`))
	for idx, key := range items {
		w.Write([]byte(fmt.Sprintf(`<div><img id="graph-%d" src="/img/%s/%s?%d" /></div>`,
			idx, bucket, key, time.Now().UnixMicro())))
	}
	w.Write([]byte(`</div></body></html>`))
}
