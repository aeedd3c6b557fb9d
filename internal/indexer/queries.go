package indexer

import "fmt"

// Query tuning knobs shared by both extractions. Pipelines paying under
// the compensation threshold are test or placeholder positions; a hire
// older than the hired threshold no longer blocks re-engagement.
const (
	compensationThreshold = 5
	hiredThresholdMonths  = 12
)

// withArgs prepends the args CTE every extraction query joins against.
func withArgs(startDate, query string) string {
	return fmt.Sprintf(`WITH args AS (
    SELECT %d AS compensationThreshold,
           %d AS hiredThresholdMonths,
           date('%s') AS startDate
),
%s`, compensationThreshold, hiredThresholdMonths, startDate, query)
}

// fromApplications joins an application to its account, contact, step
// results and pipeline, dropping test accounts and test positions.
const fromApplications = `
    FROM applications app
        LEFT JOIN args ON true
        INNER JOIN accounts acct ON app.account_id = acct.id
        LEFT JOIN contacts con ON con.account_id = acct.id
        AND acct.last_name NOT LIKE '%Test%'
        LEFT JOIN step_results sr ON sr.application_id = app.id
        AND sr.state IN (
            'Result_Passed',
            'Result_Failed',
            'Result_Failed_Retryable'
        )
        INNER JOIN pipelines pipe ON app.pipeline_id = pipe.id
        AND pipe.hourly_rate >= args.compensationThreshold
        AND NOT pipe.name LIKE '%Test Position%'
`

// fromAccountJoins re-joins a pre-filtered account set to its step
// results and badge proficiencies, counting simulated badges only when
// the score clears the pass threshold.
const fromAccountJoins = `
    LEFT JOIN args ON true
    INNER JOIN applications app ON acc.accId = app.account_id
    INNER JOIN step_results sr ON sr.application_id = app.id
    AND sr.state IN (
        'Result_Passed',
        'Result_Failed',
        'Result_Failed_Retryable'
    )
    INNER JOIN application_steps appstep ON sr.application_step_id = appstep.id
    LEFT JOIN badge_proficiencies prof ON sr.badge_earned_id = prof.id
    LEFT JOIN badge_proficiencies prof2 ON appstep.id = prof2.assessment_id
    AND sr.badge_simulated = 'Yes'
    AND sr.score >= prof2.pass_threshold
`

// candidatesQuery produces one metadata row per candidate with at least
// one earned badge: country, activity, timezone, compensation floor,
// job titles, badges and the derived availability bucket.
const candidatesQuery = `suitable_accounts AS (
    SELECT app.account_id AS accId,
        con.is_email_bounced AS isEmailBounced,
        loc.country AS country,
        from_iso8601_timestamp(acct.last_modified_date) AS accLastModifiedDate,
        from_iso8601_timestamp(app.last_modified_date) AS appLastModifiedDate,
        from_iso8601_timestamp(acct.last_successful_login) AS lastActivity,
        acct.timezone AS timezone,
        ARRAY [ pipe.name, pjt.job_title, pjt1.job_title ] AS jobTitles,
        app.amount AS amount,
        app.loss_reason AS lossReason,
        max (
            sr.signal_type = 'Fraud'
            AND sr.signal_confidence >= 80
        ) AS srFraud,
        max (
            app.stage_name = 'Hired'
            AND date_diff(
                'month',
                from_iso8601_timestamp(app.hired_at),
                current_timestamp
            ) < args.hiredThresholdMonths
        ) AS hired,
        max (
            acct.opted_out_of_email
            OR acct.first_name = 'DELETED'
            OR UPPER (acct.name) LIKE '%TEST%'
        ) AS notInterested
    ` + fromApplications + `
        LEFT JOIN locations loc ON acct.location_id = loc.id
        LEFT JOIN campaigns camp ON camp.id = app.campaign_id
        LEFT JOIN pipeline_job_titles pjt ON pjt.id = camp.pipeline_job_title_id
        LEFT JOIN job_board_cells jbc ON jbc.id = camp.job_board_cell_id
        LEFT JOIN pipeline_job_titles pjt1 ON pjt1.id = jbc.pipeline_job_title_id
    GROUP BY app.id,
        app.account_id,
        con.is_email_bounced,
        loc.country,
        acct.last_modified_date,
        acct.timezone,
        app.last_modified_date,
        ARRAY [ pipe.name,
        pjt.job_title,
        pjt1.job_title ],
        acct.last_successful_login,
        app.amount,
        app.loss_reason
),
suitable_badges AS (
    SELECT acc.accId,
        acc.country,
        acc.isEmailBounced,
        max(acc.lastActivity) AS lastActivity,
        max(acc.timezone) AS timezone,
        min (acc.amount) AS rate,
        filter(acc.jobTitles, x->x IS NOT NULL) AS jobTitles,
        filter(
            array_distinct(ARRAY_AGG(acc.lossReason)),
            x->x IS NOT NULL
        ) AS lossReasons,
        appstep.id AS stepId,
        srFraud,
        hired,
        notInterested,
        MAX (COALESCE (prof2.stars, prof.stars)) profStars
    FROM suitable_accounts acc
    ` + fromAccountJoins + `
    WHERE accLastModifiedDate > args.startDate OR appLastModifiedDate > args.startDate
    GROUP BY acc.accId,
        acc.country,
        acc.isEmailBounced,
        acc.jobTitles,
        appstep.id,
        srFraud,
        hired,
        notInterested
    HAVING MAX (COALESCE (prof2.stars, prof.stars)) IS NOT NULL
)
SELECT accId AS candidateId,
    country,
    lastActivity,
    timezone AS detectedTimezone,
    min(rate) AS minCompPerHr,
    CAST(
        array_distinct(flatten(array_agg(jobTitles))) AS JSON
    ) AS jobTitles,
    CAST(
        array_distinct(
            ARRAY_AGG(
                CAST(
                    ROW(stepId, profStars) AS ROW (id VARCHAR, stars DECIMAL)
                )
            )
        ) AS JSON
    ) badges,
    CASE
        WHEN max(
            arrays_overlap(
                lossReasons,
                ARRAY [ 'Rejected Proctored CCAT',
                'Rejected Blacklisted',
                'Rejected Duplicate Account' ]
            )
        )
        OR max(srFraud) THEN 'blacklisted'
        WHEN max(hired) THEN 'hired'
        WHEN max(notInterested) THEN 'not-interested' ELSE 'available'
    END AS availability,
    isEmailBounced
FROM suitable_badges
GROUP BY accId,
    country,
    lastActivity,
    timezone,
    isEmailBounced
ORDER BY accId`

// profilesQuery joins the free-text a candidate wrote about themselves
// (account description plus education and work history entries) into a
// single resumeProfile narrative per candidate.
const profilesQuery = `suitable_accounts AS (
    SELECT app.account_id AS accId,
      acct.description AS description,
      array_distinct(flatten(
      array_agg(filter(
        ARRAY [ ci.description,
                ci.institution,
                ci.what,
                ci.degree ],
                x->x IS NOT NULL
      )))
    ) AS candidateInfo,
    from_iso8601_timestamp(app.last_modified_date) AS appLastModifiedDate,
        max(from_iso8601_timestamp(ci.last_modified_date)) AS ciLastModifiedDate
    ` + fromApplications + `
        LEFT JOIN candidate_information ci ON acct.id = ci.candidate_id
    GROUP BY app.account_id,
        acct.description,
        app.last_modified_date
)
, accounts_with_resumes AS (
    SELECT accId,
        array_join(
            filter(
                ARRAY[description] || candidateInfo,
                x-> x IS NOT NULL
            ),
            '\n',
            ''
        ) AS resumeProfile,
        appLastModifiedDate,
        ciLastModifiedDate
    FROM suitable_accounts
    WHERE description IS NOT NULL OR cardinality(candidateInfo) > 0
)
SELECT acc.accId AS candidateId, acc.resumeProfile
FROM accounts_with_resumes acc
    ` + fromAccountJoins + `
WHERE (
        appLastModifiedDate > args.startDate
        OR ciLastModifiedDate > args.startDate
    )
GROUP BY acc.accId, acc.resumeProfile
HAVING MAX (COALESCE (prof2.stars, prof.stars)) IS NOT NULL`
