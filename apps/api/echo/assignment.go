package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/course"
)

type assignmentApi struct {
	svc       assignment.Service
	courseSvc course.Service
	validate  *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := assignmentApi{
		svc:       opts.AssignmentSvc,
		courseSvc: opts.CourseSvc,
		validate:  opts.Validate,
	}

	cg := g.Group("/courses/:courseID/assignments", jwt, sess)
	cg.GET("", api.queryByCourse)
	cg.POST("", api.create, facultyOrAdminMiddleware())

	ag := g.Group("/assignments/:id", jwt, sess)
	ag.GET("", api.retrieve)
	ag.PUT("", api.update, facultyOrAdminMiddleware())
	ag.DELETE("", api.destroy, facultyOrAdminMiddleware())
	ag.POST("/submissions", api.submit, studentMiddleware())
	ag.GET("/submissions", api.querySubmissions, facultyOrAdminMiddleware())
	ag.PUT("/submissions/:studentID", api.grade, facultyOrAdminMiddleware())
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	crs, err := api.courseSvc.GetByID(rctx, ctx.Param("courseID"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}

	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Create(rctx, crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) queryByCourse(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	asgs, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("courseID"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submit records the calling student's submission; at most one per student.
func (api *assignmentApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		switch errors.Cause(err) {
		case assignment.ErrNotFound:
			return errHttpNotFound
		case assignment.ErrSubmissionExists:
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	asg, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding assignment by ID")
	}

	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(rctx, asg, api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(rctx, asg.ID, ctx.Param("studentID"), *data.Marks)
	if err != nil {
		if errors.Cause(err) == assignment.ErrSubmissionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
