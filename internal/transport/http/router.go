package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/skvora/clothes-shop/internal/authn"
	"github.com/skvora/clothes-shop/internal/handlers"
	"github.com/skvora/clothes-shop/internal/handlers/cart"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *cart.CartHandler
	WishlistHandler *handlers.WishlistHandler
	OrderHandler    *handlers.OrderHandler
	SearchHandler   *handlers.SearchHandler
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := v1.Group("/admin", authn.RequireAdmin(d.JWTSecret))
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.PUT("/products/:id/sizes", d.ProductHandler.UpsertSizes)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cartGroup := v1.Group("/cart", authn.RequireLogin(d.JWTSecret))
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("/items", d.CartHandler.AddToCart)
	cartGroup.POST("/items/:id", d.CartHandler.UpdateItem)
	cartGroup.DELETE("/items/:id", d.CartHandler.RemoveItem)
	cartGroup.POST("/checkout", d.OrderHandler.PlaceOrder)

	wishlist := v1.Group("/wishlist", authn.RequireLogin(d.JWTSecret))
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("", d.WishlistHandler.AddToWishlist)
	wishlist.DELETE("/:id", d.WishlistHandler.RemoveFromWishlist)
	wishlist.POST("/:id/move", d.WishlistHandler.MoveToCart)

	orders := v1.Group("/orders", authn.RequireLogin(d.JWTSecret))
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
}
