package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrGalleryNotFound = ErrorResponse{
		Status:  "error",
		Error:   "gallery_not_found",
		Details: "Gallery does not exist",
	}

	ErrMediaNotFound = ErrorResponse{
		Status:  "error",
		Error:   "media_not_found",
		Details: "Media does not exist or does not belong to this gallery",
	}

	ErrSlugTaken = ErrorResponse{
		Status:  "error",
		Error:   "slug_taken",
		Details: "Gallery with this slug already exists",
	}

	ErrAccessDenied = ErrorResponse{
		Status:  "error",
		Error:   "access_denied",
		Details: "Access level does not permit this operation",
	}

	ErrQuotaExceeded = ErrorResponse{
		Status:  "error",
		Error:   "quota_exceeded",
		Details: "Selection quota for this grant is exhausted",
	}

	ErrDeadlinePassed = ErrorResponse{
		Status:  "error",
		Error:   "deadline_passed",
		Details: "Selection deadline has passed, selections are frozen",
	}

	ErrInvalidStateTransition = ErrorResponse{
		Status:  "error",
		Error:   "invalid_state_transition",
		Details: "Package status transition is not allowed",
	}

	ErrInvalidPassword = ErrorResponse{
		Status: "error",
		Error:  "invalid_password",
	}
)
