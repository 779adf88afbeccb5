package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) listNotificationsHandler(c *gin.Context) {
	userID := caller(c)
	unreadOnly := c.Query("unreadOnly") == "true"

	notifs := a.notifs.ListNotifications(userID, unreadOnly)
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifs,
		"total":         len(notifs),
		"unreadCount":   a.notifs.UnreadCount(userID),
	})
}

// markNotificationReadHandler always succeeds; unknown ids are ignored.
func (a *API) markNotificationReadHandler(c *gin.Context) {
	a.notifs.MarkRead(caller(c), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"code": "OK", "message": "Notification marked as read"})
}

func (a *API) notificationStreamHandler(c *gin.Context) {
	a.hub.Serve(c.Writer, c.Request, caller(c))
}
