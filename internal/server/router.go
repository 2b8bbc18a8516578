package server

import (
	"context"
	"net/http"

	"mealplanner/internal/handlers"
	applog "mealplanner/internal/log"
	"mealplanner/internal/metrics"
)

type route struct {
	pattern   string
	handler   http.HandlerFunc
	protected bool
	admin     bool
}

var routes = []route{
	{pattern: "/healthz", handler: handlers.Health},
	{pattern: "/api/health", handler: handlers.Health},
	{pattern: "/api/auth/login", handler: handlers.Login},
	{pattern: "/api/auth/logout", handler: handlers.Logout},
	{pattern: "/api/users", handler: handlers.Users, protected: true, admin: true},
	{pattern: "/api/users/me", handler: handlers.CurrentUser, protected: true},
	{pattern: "/api/users/me/password", handler: handlers.ChangePassword, protected: true},
	{pattern: "/api/dishes", handler: handlers.DishResource, protected: true},
	{pattern: "/api/dishes/", handler: handlers.DishResource, protected: true},
	{pattern: "/api/plans", handler: handlers.PlanResource, protected: true},
	{pattern: "/api/plans/", handler: handlers.PlanResource, protected: true},
	{pattern: "/api/shopping-list", handler: handlers.ShoppingList, protected: true},
	{pattern: "/api/ingredients", handler: handlers.IngredientResource, protected: true},
	{pattern: "/api/ingredients/", handler: handlers.IngredientResource, protected: true},
	{pattern: "/api/calories", handler: handlers.CalorieResource, protected: true},
	{pattern: "/api/calories/", handler: handlers.CalorieResource, protected: true},
	{pattern: "/api/purchases", handler: handlers.PurchaseResource, protected: true},
	{pattern: "/api/purchases/import", handler: handlers.ImportPurchases, protected: true},
	{pattern: "/api/analytics/spending", handler: handlers.SpendingAnalytics, protected: true},
	{pattern: "/api/analytics/dish-costs", handler: handlers.DishCostAnalytics, protected: true},
	{pattern: "/app/shopping-list", handler: handlers.ShoppingListPage, protected: true},
}

func newRouter(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	for _, rt := range routes {
		var h http.Handler = rt.handler
		if rt.admin {
			h = handlers.RequireAdmin(h)
		}
		if rt.protected {
			h = handlers.RequireAuthentication(h)
		}
		mux.Handle(rt.pattern, handlers.Instrument(m, rt.pattern, h))
		applog.Debug(context.Background(), "route registered", "path", rt.pattern, "protected", rt.protected, "admin", rt.admin)
	}

	if m != nil {
		mux.Handle("/metrics", m.Handler())
		applog.Debug(context.Background(), "route registered", "path", "/metrics")
	}
	return mux
}
