package handler

import (
	"net/http"
	"slices"

	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "catalog-service"

func init() {
	// Тело товара читается в map: числа должны приходить json.Number
	binding.EnableDecoderUseNumber = true
}

// SetupRoutes настраивает все маршруты Catalog Service с использованием Gin.
// allowedOrigins пустой или содержащий "*" разрешает любые источники
func SetupRoutes(catalogHandler *CatalogHandler, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	// CORS настройки
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders: []string{"Location", logger.RequestIDHeader},
		MaxAge:        300,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := router.Group("/products")
	{
		products.GET("", catalogHandler.GetAllProducts)                // Список товаров с фильтрами
		products.GET("/low-stock", catalogHandler.GetLowStockProducts) // Товары, которые заканчиваются
		products.GET("/featured", catalogHandler.GetFeaturedProducts)  // Рекомендуемые товары
		products.GET("/:id", catalogHandler.GetProduct)                // Товар по ID
		products.POST("", catalogHandler.CreateProduct)                // Создать товар
		products.PUT("/:id", catalogHandler.UpdateProduct)             // Обновить товар
		products.PATCH("/:id", catalogHandler.UpdateProduct)           // Частичное обновление
		products.PATCH("/:id/stock", catalogHandler.UpdateStock)       // Изменить остаток
		products.DELETE("/:id", catalogHandler.DeleteProduct)          // Удалить товар
	}

	categories := router.Group("/categories")
	{
		categories.GET("", catalogHandler.GetAllCategories) // Список категорий (кеш Redis)
		categories.POST("", catalogHandler.CreateCategory)
		categories.GET("/:id", catalogHandler.GetCategory)
		categories.PUT("/:id", catalogHandler.UpdateCategory)
		categories.DELETE("/:id", catalogHandler.DeleteCategory)

		// Товары категории
		categories.GET("/:id/products", catalogHandler.ListCategoryProducts)
		categories.POST("/:id/products", catalogHandler.AttachProduct)
		categories.DELETE("/:id/products/:productId", catalogHandler.DetachProduct)
	}

	return router
}
