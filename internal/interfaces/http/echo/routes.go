package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, authHandler *AuthHandler) {
	server.POST("/api/v1/auth/login", authHandler.Login)
	server.GET("/api/v1/auth/exists", authHandler.UserExists)
}
