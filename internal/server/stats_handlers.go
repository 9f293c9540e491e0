package server

import "github.com/gofiber/fiber/v2"

// GetStatsOverview handles GET /api/stats/overview
// @Summary Platform totals
// @Tags stats
// @Produce json
// @Success 200 {object} models.StatsOverview
// @Router /stats/overview [get]
func (s *Server) GetStatsOverview(c *fiber.Ctx) error {
	overview, err := s.statsService.Overview(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}

// GetTopVideos handles GET /api/stats/top-videos
// @Summary Most viewed videos
// @Tags stats
// @Produce json
// @Param limit query int false "Number of videos (default 10, max 100)"
// @Success 200 {array} models.Video
// @Router /stats/top-videos [get]
func (s *Server) GetTopVideos(c *fiber.Ctx) error {
	videos, err := s.statsService.TopVideos(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(videos)
}

// GetTagUsage handles GET /api/stats/tags
// @Summary Tags by number of videos
// @Tags stats
// @Produce json
// @Param limit query int false "Number of tags (default 10, max 100)"
// @Success 200 {array} models.TagCount
// @Router /stats/tags [get]
func (s *Server) GetTagUsage(c *fiber.Ctx) error {
	usage, err := s.statsService.TagUsage(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(usage)
}

// GetUploads handles GET /api/stats/uploads
// @Summary Uploads per day
// @Tags stats
// @Produce json
// @Param days query int false "Window in days (default 30, max 365)"
// @Success 200 {array} models.DailyCount
// @Failure 400 {object} models.ErrorResponse
// @Router /stats/uploads [get]
func (s *Server) GetUploads(c *fiber.Ctx) error {
	days, err := s.statsService.Uploads(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(days)
}
