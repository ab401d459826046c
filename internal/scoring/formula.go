// Package scoring computes the deterministic importance scores used to
// rank repositories and developers. The formulas are weighted sums over
// graph signals; sweeps recompute them in batches.
package scoring

import "math"

// Weighted-sum coefficients. Stars and followers are log-damped so a
// single mega-repo does not drown the rest of the ranking.
const (
	repoStarsWeight        = 10.0
	repoForksWeight        = 5.0
	repoContributorWeight  = 2.0
	repoEcosystemWeight    = 15.0
	devFollowersWeight     = 8.0
	devPublicReposWeight   = 1.0
	contributionSaturation = 50.0
)

// RepositoryImportance scores a repository from stars, forks,
// contributor count, and ecosystem membership count.
func RepositoryImportance(stars, forks, contributors, ecosystems int) float64 {
	return math.Log1p(float64(stars))*repoStarsWeight +
		math.Log1p(float64(forks))*repoForksWeight +
		float64(contributors)*repoContributorWeight +
		float64(ecosystems)*repoEcosystemWeight
}

// ContributionWeight maps a raw contribution count to a [0,1] share of
// a repository's importance. Saturates at 50 contributions.
func ContributionWeight(contributions int) float64 {
	if contributions <= 0 {
		return 0
	}
	w := float64(contributions) / contributionSaturation
	if w > 1 {
		return 1
	}
	return w
}

// DeveloperImportance scores a profile from followers, public repo
// count, and the contribution-weighted sum of scored repositories the
// profile contributed to.
func DeveloperImportance(followers, publicRepos int, weightedRepoSum float64) float64 {
	return math.Log1p(float64(followers))*devFollowersWeight +
		float64(publicRepos)*devPublicReposWeight +
		weightedRepoSum
}
