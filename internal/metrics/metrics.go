package metrics

import (
	"net/http"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метрики voxel-core. Регистрируются в глобальном регистре Prometheus при импорте пакета.
var (
	// ShapesLoaded - загрузки форм по формату ("3zh", "pcubes", "vox") и результату ("ok", "error")
	ShapesLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "shapes_loaded_total",
		Help:      "Количество загруженных форм по формату и результату.",
	}, []string{"format", "outcome"})

	// ShapesSaved - сохранения форм по результату
	ShapesSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "shapes_saved_total",
		Help:      "Количество сохранённых форм по результату.",
	}, []string{"outcome"})

	// CodecDuration - длительность операций кодека
	CodecDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voxel",
		Name:      "codec_duration_seconds",
		Help:      "Длительность операций чтения/записи файлов форм.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"op"})

	// TransactionAddRejected - отклонённые добавления блока поверх твёрдого блока
	TransactionAddRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "transaction_add_rejected_total",
		Help:      "Добавления блока, отклонённые из-за занятой ячейки.",
	})

	// BakeCache - обращения к кешу запечённых файлов: "hit", "miss", "mismatch", "rebake", "error"
	BakeCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "bake_cache_total",
		Help:      "Обращения к кешу запечённых файлов по результату.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ShapesLoaded, ShapesSaved, CodecDuration, TransactionAddRejected, BakeCache)
}

// Handler возвращает HTTP-обработчик /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод блокирующий; ошибка ListenAndServe возвращается вызывающему.
func StartHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
	return http.ListenAndServe(addr, mux)
}
